package engine

// Intangible marks a NodeReference that has not yet been written to the
// backing file. It is an in-memory sentinel only; it is never encoded.
const Intangible int64 = -239

// Mark identifies which kind of node a Reference points at.
type Mark byte

const (
	MarkFile   Mark = 'C'
	MarkFolder Mark = 'F'
)

func (m Mark) Valid() bool {
	return m == MarkFile || m == MarkFolder
}

// refSize is the fixed on-disk size of a Reference: 1 mark byte + 8 bytes
// of big-endian signed data position.
const refSize = 9

// childHeaderSize is the number of bytes a folder record spends on
// children_used_space (8) and children_count (4) before the child
// reference array begins.
const childHeaderSize = 12

// Reference is the fixed 9-byte pointer record: mark + data position.
type Reference struct {
	// Position is the absolute offset where this reference itself lives in
	// the backing file. Intangible means "not yet stored."
	Position int64
	// DataPosition is the absolute offset of the referenced node's
	// metadata record.
	DataPosition int64
	Mark         Mark
}

func (r Reference) IsFolder() bool { return r.Mark == MarkFolder }
func (r Reference) IsFile() bool   { return r.Mark == MarkFile }

// FileMeta is the decoded metadata of a file record (content excluded).
type FileMeta struct {
	Name     string
	FileSize int64
}

// FolderMeta is the decoded metadata of a folder record.
type FolderMeta struct {
	Name              string
	ChildrenUsedSpace int64
	Children          []Reference
}

// Fragment is a short-lived, in-memory snapshot of one node: its
// reference, its decoded metadata, a link to its parent fragment (nil for
// the root), and size bookkeeping. Fragments are never cached across lock
// releases — every StorageEngine entry point builds fresh ones.
type Fragment struct {
	Reference Reference
	File      *FileMeta   // non-nil iff Reference.IsFile()
	Folder    *FolderMeta // non-nil iff Reference.IsFolder()
	Parent    *Fragment   // nil for the root

	// MetaSizeBytes is the length of this node's own on-disk metadata
	// record plus the 9 bytes its reference occupies.
	MetaSizeBytes int64
}

func (f *Fragment) IsRoot() bool { return f.Parent == nil }

func (f *Fragment) Name() string {
	if f.File != nil {
		return f.File.Name
	}
	return f.Folder.Name
}

// EffectiveParent implements the "root's parent is itself" rule from
// spec.md §9 without building a cyclic ownership graph: callers that walk
// "up" from the root simply see the root again.
func (f *Fragment) EffectiveParent() *Fragment {
	if f.Parent != nil {
		return f.Parent
	}
	return f
}

// TotalSizeBytes is meta_size_bytes plus the folder's children_used_space,
// less the space occupied by the child references counted twice (once in
// this folder's own record, once already folded into each child's own
// TotalSizeBytes by the caller that set children_used_space). Files have
// no children, so their total is just their own metadata size.
//
// This relationship is load-bearing for defragmentation's threshold check
// (spec.md §9) and must not be recomputed any other way.
func (f *Fragment) TotalSizeBytes() int64 {
	if f.Folder == nil {
		return f.MetaSizeBytes
	}
	return f.MetaSizeBytes + f.Folder.ChildrenUsedSpace - int64(len(f.Folder.Children))*refSize
}

// fileRecordSize returns the on-disk size (excluding the 9-byte
// reference) of a file record with the given name and content length.
func fileRecordSize(name string, fileSize int64) int64 {
	return 2 + int64(len(name)) + 8 + fileSize
}

// folderRecordSize returns the on-disk size (excluding the 9-byte
// reference) of a folder record with the given name and child count.
func folderRecordSize(name string, childCount int) int64 {
	return int64(childHeaderSize) + int64(childCount)*refSize + 2 + int64(len(name))
}
