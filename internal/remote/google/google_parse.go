package google

import (
	"fmt"
	"strings"
)

// findUserRow returns the zero-based index of the first row whose column A
// is userID, or -1.
func findUserRow(rows [][]interface{}, userID string) int {
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(r[0])) == userID {
			return i
		}
	}
	return -1
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
