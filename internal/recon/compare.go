package recon

import "sort"

// Compare joins two sides' chunk results for one table by chunk id and
// returns the mismatching chunks, ordered by chunk id.
//
// A chunk id present on only one side is always a mismatch: the asymmetry
// itself signals rows wholly added or removed. Equal fingerprints with
// differing row counts are also a mismatch; fingerprint equality alone is not
// sufficient evidence of row-level equality.
func Compare(spec TableSpec, source, target []ChunkResult) []MismatchRecord {
	srcByID := make(map[int]ChunkResult, len(source))
	for _, c := range source {
		srcByID[c.ChunkID] = c
	}
	tgtByID := make(map[int]ChunkResult, len(target))
	for _, c := range target {
		tgtByID[c.ChunkID] = c
	}

	ids := make(map[int]struct{}, len(srcByID)+len(tgtByID))
	for id := range srcByID {
		ids[id] = struct{}{}
	}
	for id := range tgtByID {
		ids[id] = struct{}{}
	}

	var out []MismatchRecord
	for id := range ids {
		src, srcOK := srcByID[id]
		tgt, tgtOK := tgtByID[id]
		if srcOK && tgtOK && src.Sum == tgt.Sum && src.Rows == tgt.Rows {
			continue
		}
		out = append(out, MismatchRecord{
			Schema:        spec.SourceSchema,
			Table:         spec.SourceTable,
			ChunkID:       id,
			SourceSum:     src.Sum,
			TargetSum:     tgt.Sum,
			SourceRows:    src.Rows,
			TargetRows:    tgt.Rows,
			SourcePresent: srcOK,
			TargetPresent: tgtOK,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkID < out[j].ChunkID })
	return out
}
