package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"example.com/backstage/services/pickaudit/internal/analysis"
	"example.com/backstage/services/pickaudit/internal/models"
)

// ContentHash returns the hex sha256 of an uploaded table
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// InputHash identifies a dataset set by kind and content, independent of
// upload order
func InputHash(datasets []models.Dataset) string {
	parts := make([]string, 0, len(datasets))
	for _, d := range datasets {
		parts = append(parts, d.Kind+":"+d.ContentHash)
	}
	sort.Strings(parts)

	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ParamsHash identifies the options of a run
func ParamsHash(opts analysis.Options) string {
	key := struct {
		Params            interface{} `json:"p"`
		ExcludedUsers     []string    `json:"u"`
		ExcludedQueues    []string    `json:"q"`
		ExcludedMaterials []string    `json:"m"`
		TopMaterials      int         `json:"t"`
	}{
		Params:            opts.Params.Sanitized(),
		ExcludedUsers:     sortedCopy(opts.Picking.ExcludedUsers),
		ExcludedQueues:    sortedCopy(opts.Picking.ExcludedQueues),
		ExcludedMaterials: sortedCopy(opts.Picking.ExcludedMaterials),
		TopMaterials:      opts.TopMaterials,
	}
	data, _ := json.Marshal(key)
	return ContentHash(data)
}

func sortedCopy(values []string) []string {
	out := append([]string{}, values...)
	sort.Strings(out)
	return out
}
