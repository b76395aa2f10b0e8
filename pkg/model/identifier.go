package model

import (
	"fmt"
	"regexp"
	"strconv"
)

var idvPattern = regexp.MustCompile(`^(.+?)v(\d+)$`)

// VersionedID builds the composite paper_id_v key from a paper id and a
// version number.
func VersionedID(paperID string, version int) string {
	return fmt.Sprintf("%sv%d", paperID, version)
}

// SplitID splits an identifier into its versionless paper id and version
// number. A versionless identifier yields version 0.
func SplitID(id string) (paperID string, version int) {
	m := idvPattern.FindStringSubmatch(id)
	if m == nil {
		return id, 0
	}
	v, err := strconv.Atoi(m[2])
	if err != nil {
		return id, 0
	}
	return m[1], v
}
