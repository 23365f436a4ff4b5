package fois

import (
	"strconv"
	"strings"
)

// DirectoryEntry is one active locomotive from the RailRadar directory.
// TrainNo is present only when the directory knows the assignment.
type DirectoryEntry struct {
	LocoNo  int  `json:"loco_no"`
	TrainNo *int `json:"train_no"`
}

type directoryResponse struct {
	LocoData []DirectoryEntry `json:"locoData"`
}

// DetailResult tags a per-locomotive detail fetch as success or
// failure so one failing locomotive never aborts a batch.
type DetailResult struct {
	LocoNo int
	Data   []byte
	Err    error
}

type foisResponse struct {
	LocoDtls []locoDetail `json:"LocoDtls"`
}

type locoDetail struct {
	PopUpMsg string      `json:"PopUpMsg"`
	Lttd     numericText `json:"Lttd"`
	Lgtd     numericText `json:"Lgtd"`
}

// numericText holds a coordinate field that arrives as either a quoted
// or a bare number depending on the upstream build.
type numericText string

func (n *numericText) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*n = numericText(s)
	return nil
}

// Float parses the coordinate; an error marks the position invalid.
func (n numericText) Float() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
}
