package engine

import (
	"encoding/binary"
	"io"
	"os"
)

// FileController is a stateful cursor over one open handle to the backing
// file, opened read-only for readers and read/write for writers. It knows
// nothing about the tree — only how to decode and encode the fixed
// byte-level framing described in spec.md §3 and §6.
type FileController struct {
	f        *os.File
	writable bool
}

func openFileController(path string, writable bool) (*FileController, error) {
	// O_CREATE is passed even for a read-only open: a brand-new engine whose
	// backing file does not exist yet must still support read-locked
	// operations (spec.md §8 property 1, scenario S1), and ReadFragmentAt's
	// zero-size special case already synthesizes the virtual empty root for
	// exactly this situation. The real initialization (writing the actual
	// root reference and folder record) still happens lazily under the
	// first write lock, in ensureInitialized.
	flag := os.O_RDONLY | os.O_CREATE
	if writable {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, Internal(path, err)
	}
	return &FileController{f: f, writable: writable}, nil
}

// Position seeks to off and returns the resulting offset.
func (fc *FileController) Position(off int64) (int64, error) {
	pos, err := fc.f.Seek(off, io.SeekStart)
	if err != nil {
		return 0, Internal(fc.f.Name(), err)
	}
	return pos, nil
}

// CurrentPosition returns the current offset without seeking.
func (fc *FileController) CurrentPosition() (int64, error) {
	pos, err := fc.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, Internal(fc.f.Name(), err)
	}
	return pos, nil
}

// Size returns the current length of the backing file.
func (fc *FileController) Size() (int64, error) {
	info, err := fc.f.Stat()
	if err != nil {
		return 0, Internal(fc.f.Name(), err)
	}
	return info.Size(), nil
}

func (fc *FileController) Close() error {
	return fc.f.Close()
}

func (fc *FileController) readFull(buf []byte) error {
	_, err := io.ReadFull(fc.f, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return New(ShortRead, fc.f.Name(), err.Error())
	}
	if err != nil {
		return Internal(fc.f.Name(), err)
	}
	return nil
}

// ReadReference decodes 9 bytes at the current position: mark followed by
// an 8-byte big-endian signed data position. The returned reference's
// Position is the offset it was read from.
func (fc *FileController) ReadReference() (Reference, error) {
	pos, err := fc.CurrentPosition()
	if err != nil {
		return Reference{}, err
	}

	buf := make([]byte, refSize)
	if err := fc.readFull(buf); err != nil {
		return Reference{}, err
	}

	mark := Mark(buf[0])
	if !mark.Valid() {
		return Reference{}, New(CorruptFormat, fc.f.Name(), "reference mark is neither 'C' nor 'F'")
	}

	dataPos := int64(binary.BigEndian.Uint64(buf[1:]))
	return Reference{Position: pos, DataPosition: dataPos, Mark: mark}, nil
}

// PutReference writes a 9-byte reference at the current position and
// returns the reference that was created.
func (fc *FileController) PutReference(mark Mark, dataPosition int64) (Reference, error) {
	pos, err := fc.CurrentPosition()
	if err != nil {
		return Reference{}, err
	}

	buf := make([]byte, refSize)
	buf[0] = byte(mark)
	binary.BigEndian.PutUint64(buf[1:], uint64(dataPosition))

	if _, err := fc.f.Write(buf); err != nil {
		return Reference{}, Internal(fc.f.Name(), err)
	}
	return Reference{Position: pos, DataPosition: dataPosition, Mark: mark}, nil
}

func (fc *FileController) readUint16() (uint16, error) {
	buf := make([]byte, 2)
	if err := fc.readFull(buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

func (fc *FileController) readInt64() (int64, error) {
	buf := make([]byte, 8)
	if err := fc.readFull(buf); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf)), nil
}

func (fc *FileController) readInt32() (int32, error) {
	buf := make([]byte, 4)
	if err := fc.readFull(buf); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf)), nil
}

func (fc *FileController) readName() (string, error) {
	length, err := fc.readUint16()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	buf := make([]byte, length)
	if err := fc.readFull(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func putUint16(buf []byte, v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return append(buf, b...)
}

func putInt64(buf []byte, v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return append(buf, b...)
}

func putInt32(buf []byte, v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return append(buf, b...)
}

func putName(buf []byte, name string) []byte {
	buf = putUint16(buf, uint16(len(name)))
	return append(buf, []byte(name)...)
}

// ReadFragmentAt is the special-cased entry point from spec.md §4.2: when
// the backing file is empty and refPosition is 0, it synthesizes the
// virtual root fragment rather than trying to decode a reference that was
// never written. Otherwise it seeks to refPosition, decodes the reference
// there, and delegates to ReadFragment.
func (fc *FileController) ReadFragmentAt(refPosition int64, parent *Fragment) (*Fragment, error) {
	if refPosition == 0 {
		size, err := fc.Size()
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return &Fragment{
				Reference: Reference{Position: Intangible, DataPosition: Intangible, Mark: MarkFolder},
				Folder:    &FolderMeta{Name: "", ChildrenUsedSpace: 0, Children: nil},
			}, nil
		}
	}

	if _, err := fc.Position(refPosition); err != nil {
		return nil, err
	}
	ref, err := fc.ReadReference()
	if err != nil {
		return nil, err
	}
	return fc.ReadFragment(ref, parent)
}

// ReadFragment dispatches on ref.Mark and decodes the full node record at
// ref.DataPosition, returning a fragment with MetaSizeBytes computed.
func (fc *FileController) ReadFragment(ref Reference, parent *Fragment) (*Fragment, error) {
	if _, err := fc.Position(ref.DataPosition); err != nil {
		return nil, err
	}

	switch ref.Mark {
	case MarkFile:
		name, err := fc.readName()
		if err != nil {
			return nil, err
		}
		fileSize, err := fc.readInt64()
		if err != nil {
			return nil, err
		}
		return &Fragment{
			Reference:     ref,
			File:          &FileMeta{Name: name, FileSize: fileSize},
			Parent:        parent,
			MetaSizeBytes: refSize + fileRecordSize(name, fileSize),
		}, nil

	case MarkFolder:
		usedSpace, err := fc.readInt64()
		if err != nil {
			return nil, err
		}
		count, err := fc.readInt32()
		if err != nil {
			return nil, err
		}
		children := make([]Reference, 0, count)
		for i := int32(0); i < count; i++ {
			childRef, err := fc.ReadReference()
			if err != nil {
				return nil, err
			}
			children = append(children, childRef)
		}
		name, err := fc.readName()
		if err != nil {
			return nil, err
		}
		return &Fragment{
			Reference: ref,
			Folder: &FolderMeta{
				Name:              name,
				ChildrenUsedSpace: usedSpace,
				Children:          children,
			},
			Parent:        parent,
			MetaSizeBytes: refSize + folderRecordSize(name, len(children)),
		}, nil

	default:
		return nil, New(CorruptFormat, fc.f.Name(), "reference mark is neither 'C' nor 'F'")
	}
}

// ReadFileContent reads exactly fragment.File.FileSize bytes of content,
// which sit immediately after the file's name and size fields.
func (fc *FileController) ReadFileContent(fragment *Fragment) ([]byte, error) {
	contentOffset := fragment.Reference.DataPosition + 2 + int64(len(fragment.File.Name)) + 8
	if _, err := fc.Position(contentOffset); err != nil {
		return nil, err
	}
	buf := make([]byte, fragment.File.FileSize)
	if err := fc.readFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// PutFileFragment writes a complete file metadata record at
// ref.DataPosition and returns the resulting fragment.
func (fc *FileController) PutFileFragment(ref Reference, name string, data []byte, parent *Fragment) (*Fragment, error) {
	if _, err := fc.Position(ref.DataPosition); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, fileRecordSize(name, int64(len(data))))
	buf = putName(buf, name)
	buf = putInt64(buf, int64(len(data)))
	buf = append(buf, data...)

	if _, err := fc.f.Write(buf); err != nil {
		return nil, Internal(fc.f.Name(), err)
	}

	return &Fragment{
		Reference:     ref,
		File:          &FileMeta{Name: name, FileSize: int64(len(data))},
		Parent:        parent,
		MetaSizeBytes: refSize + int64(len(buf)),
	}, nil
}

// PutFolderFragment writes a complete folder metadata record at
// ref.DataPosition and returns the resulting fragment.
func (fc *FileController) PutFolderFragment(ref Reference, name string, usedSpace int64, children []Reference, parent *Fragment) (*Fragment, error) {
	if _, err := fc.Position(ref.DataPosition); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, folderRecordSize(name, len(children)))
	buf = putInt64(buf, usedSpace)
	buf = putInt32(buf, int32(len(children)))
	for _, c := range children {
		b := make([]byte, 0, refSize)
		b = append(b, byte(c.Mark))
		b = putInt64(b, c.DataPosition)
		buf = append(buf, b...)
	}
	buf = putName(buf, name)

	if _, err := fc.f.Write(buf); err != nil {
		return nil, Internal(fc.f.Name(), err)
	}

	return &Fragment{
		Reference: ref,
		Folder: &FolderMeta{
			Name:              name,
			ChildrenUsedSpace: usedSpace,
			Children:          children,
		},
		Parent:        parent,
		MetaSizeBytes: refSize + int64(len(buf)),
	}, nil
}

// UpdateFileContent implements the append-and-redirect rule from spec.md
// §4.2 and §9: a new size that fits within the old footprint is rewritten
// in place; a growing file is appended at end-of-file and the original
// reference is redirected to point at it. Either way, the size delta is
// propagated to every ancestor's children_used_space.
func (fc *FileController) UpdateFileContent(ref Reference, name string, data []byte, parent *Fragment) (*Fragment, error) {
	oldSize, err := fc.currentFileSize(ref)
	if err != nil {
		return nil, err
	}
	newSize := int64(len(data))
	delta := newSize - oldSize

	var result *Fragment
	if newSize <= oldSize {
		result, err = fc.PutFileFragment(ref, name, data, parent)
		if err != nil {
			return nil, err
		}
	} else {
		endOfFile, err := fc.Size()
		if err != nil {
			return nil, err
		}
		appended, err := fc.PutFileFragment(Reference{Position: ref.Position, DataPosition: endOfFile, Mark: MarkFile}, name, data, parent)
		if err != nil {
			return nil, err
		}
		if _, err := fc.Position(ref.Position); err != nil {
			return nil, err
		}
		if _, err := fc.PutReference(MarkFile, endOfFile); err != nil {
			return nil, err
		}
		result = appended
	}

	if delta != 0 && parent != nil {
		if err := fc.PropagateUsedSpaceChange(parent, delta); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (fc *FileController) currentFileSize(ref Reference) (int64, error) {
	if _, err := fc.Position(ref.DataPosition); err != nil {
		return 0, err
	}
	length, err := fc.readUint16()
	if err != nil {
		return 0, err
	}
	if _, err := fc.Position(ref.DataPosition + 2 + int64(length)); err != nil {
		return 0, err
	}
	return fc.readInt64()
}

// PropagateUsedSpaceChange walks upward via parent fragments, rewriting
// the first 8 bytes (children_used_space) of each ancestor's folder
// record to old+delta. It stops at the root (whose EffectiveParent is
// itself) after updating it once.
func (fc *FileController) PropagateUsedSpaceChange(fragment *Fragment, delta int64) error {
	current := fragment
	for {
		if current.Folder == nil {
			return New(CorruptFormat, fc.f.Name(), "ancestor fragment is not a folder")
		}
		newUsed := current.Folder.ChildrenUsedSpace + delta
		if _, err := fc.Position(current.Reference.DataPosition); err != nil {
			return err
		}
		if _, err := fc.f.Write(encodeInt64(newUsed)); err != nil {
			return Internal(fc.f.Name(), err)
		}
		current.Folder.ChildrenUsedSpace = newUsed

		if current.IsRoot() {
			return nil
		}
		current = current.Parent
	}
}

func encodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}
