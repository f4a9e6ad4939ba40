package semantic

import (
	"vcrkernel/canon"
	"vcrkernel/epoch"
	"vcrkernel/parse"
	"vcrkernel/source"
)

// ParseEpoch is the sealed output of component E: each file's
// (file id, content hash, structural hash) triple -- the structural hash
// taken from the parse tree, independent of any pointer or allocation
// address -- folded into a single epoch hash, plus the classification
// each file received against its predecessor. A result with no Tree
// contributes the zero hash as its content hash.
type ParseEpoch struct {
	epoch.Sealed
	files []fileRecord
}

type fileRecord struct {
	id             source.FileId
	structuralHash canon.Hash
	class          parse.Classification
	tree           *parse.Tree
}

// SealParseEpoch builds a ParseEpoch from a Session's per-file results,
// in ascending FileId order, and seals its hash.
func SealParseEpoch(results map[source.FileId]parse.Result) *ParseEpoch {
	ids := make([]source.FileId, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sortFileIds(ids)

	pe := &ParseEpoch{}
	b := canon.NewBuilder()
	b.BeginStruct(1)
	canon.OrderedChecked(b, ids, func(a, c source.FileId) bool { return a < c }, func(b *canon.Builder, id source.FileId) {
		r := results[id]
		var contentHash canon.Hash
		if r.Tree != nil {
			contentHash = r.Tree.ContentHash
		}
		b.BeginStruct(1)
		b.U32(uint32(id))
		b.SubHash(contentHash)
		b.SubHash(r.StructuralHash)
		b.EndStruct()
		pe.files = append(pe.files, fileRecord{id: id, structuralHash: r.StructuralHash, class: r.Class, tree: r.Tree})
	})
	b.EndStruct()

	pe.Seal(b.Sum())
	return pe
}

func sortFileIds(ids []source.FileId) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// Tree returns the syntax tree recorded for fileID.
func (pe *ParseEpoch) Tree(fileID source.FileId) (*parse.Tree, bool) {
	for _, r := range pe.files {
		if r.id == fileID {
			return r.tree, true
		}
	}
	return nil, false
}

// Classification returns the Parsed/Unchanged classification recorded
// for fileID.
func (pe *ParseEpoch) Classification(fileID source.FileId) (parse.Classification, bool) {
	for _, r := range pe.files {
		if r.id == fileID {
			return r.class, true
		}
	}
	return 0, false
}

// FileIDs returns every file this epoch covers, in ascending order.
func (pe *ParseEpoch) FileIDs() []source.FileId {
	ids := make([]source.FileId, len(pe.files))
	for i, r := range pe.files {
		ids[i] = r.id
	}
	return ids
}
