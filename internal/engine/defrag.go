package engine

import (
	"container/heap"
	"os"
)

// Defragment implements spec.md §4.3's compaction pass. It is always
// invoked at the end of a write-locked section (see WithWriteLock) and is
// therefore fully serialized under the write lock — no other operation
// ever observes the intermediate sidecar file.
func (e *StorageEngine) Defragment(fc *FileController) error {
	root, err := fc.ReadFragmentAt(0, nil)
	if err != nil {
		return err
	}

	live := root.TotalSizeBytes()
	storage, err := fc.Size()
	if err != nil {
		return err
	}
	if storage == 0 {
		return nil
	}

	threshold := e.config.DefragEfficiencyThreshold
	if threshold*float64(storage) <= float64(live) {
		return nil
	}

	sidecarPath := e.path + ".defrag"
	newFc, err := createFileController(sidecarPath)
	if err != nil {
		return err
	}
	defer newFc.Close()

	dataMap, refMap, planOrder, err := e.planDefragLayout(fc, root)
	if err != nil {
		return err
	}

	if err := e.writeDefragLayout(fc, newFc, planOrder, dataMap, refMap); err != nil {
		return err
	}

	if err := newFc.Close(); err != nil {
		return Internal(sidecarPath, err)
	}

	if err := os.Rename(sidecarPath, e.path); err != nil {
		return Internal(e.path, err)
	}

	e.logger.Log("defrag", "defragmentation complete")
	return nil
}

// planDefragLayout walks the live tree from root in ascending
// data-position order (spec.md §4.3 step 3), assigning every node a new
// data position and every child reference a new storage position, without
// writing anything yet.
func (e *StorageEngine) planDefragLayout(fc *FileController, root *Fragment) (dataMap, refMap map[int64]int64, planOrder []*Fragment, err error) {
	dataMap = map[int64]int64{}
	refMap = map[int64]int64{0: 0} // root reference's position never moves

	pq := &fragmentHeap{root}
	heap.Init(pq)

	currentPosition := int64(refSize)

	for pq.Len() > 0 {
		node := heap.Pop(pq).(*Fragment)

		newDataPos := currentPosition
		dataMap[node.Reference.DataPosition] = newDataPos
		planOrder = append(planOrder, node)
		currentPosition += node.MetaSizeBytes - refSize

		if node.Folder == nil {
			continue
		}
		for idx, childRef := range node.Folder.Children {
			newRefPos := newDataPos + childHeaderSize + int64(idx)*refSize
			refMap[childRef.Position] = newRefPos

			child, readErr := fc.ReadFragment(childRef, node)
			if readErr != nil {
				return nil, nil, nil, readErr
			}
			heap.Push(pq, child)
		}
	}

	return dataMap, refMap, planOrder, nil
}

// writeDefragLayout performs spec.md §4.3 step 4: write the root
// reference, then every node's record in plan order (guaranteeing every
// parent is written before its children), resolving child references
// through the maps computed in the plan phase.
func (e *StorageEngine) writeDefragLayout(oldFc, newFc *FileController, planOrder []*Fragment, dataMap, refMap map[int64]int64) error {
	if _, err := newFc.Position(0); err != nil {
		return err
	}
	if _, err := newFc.PutReference(MarkFolder, refSize); err != nil {
		return err
	}

	for _, node := range planOrder {
		newDataPos := dataMap[node.Reference.DataPosition]
		newRefPos := refMap[node.Reference.Position]

		if node.File != nil {
			content, err := oldFc.ReadFileContent(node)
			if err != nil {
				return err
			}
			ref := Reference{Position: newRefPos, DataPosition: newDataPos, Mark: MarkFile}
			if _, err := newFc.PutFileFragment(ref, node.File.Name, content, nil); err != nil {
				return err
			}
			continue
		}

		resolved := make([]Reference, len(node.Folder.Children))
		for i, c := range node.Folder.Children {
			resolved[i] = Reference{
				Position:     refMap[c.Position],
				DataPosition: dataMap[c.DataPosition],
				Mark:         c.Mark,
			}
		}
		ref := Reference{Position: newRefPos, DataPosition: newDataPos, Mark: MarkFolder}
		if _, err := newFc.PutFolderFragment(ref, node.Folder.Name, node.Folder.ChildrenUsedSpace, resolved, nil); err != nil {
			return err
		}
	}

	return nil
}

func createFileController(path string) (*FileController, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, Internal(path, err)
	}
	return &FileController{f: f, writable: true}, nil
}
