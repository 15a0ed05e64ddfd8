package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage identifies one step of the storage pipeline, in execution order.
type Stage int

const (
	StageIntake Stage = iota + 1
	StageMetadata
	StagePrepare
	StageSync
	StageArchive
)

var stageNames = map[Stage]string{
	StageIntake:   "intake",
	StageMetadata: "metadata",
	StagePrepare:  "prepare",
	StageSync:     "sync",
	StageArchive:  "archive",
}

var titleCaser = cases.Title(language.English)

// Stages returns every stage in execution order.
func Stages() []Stage {
	return []Stage{StageIntake, StageMetadata, StagePrepare, StageSync, StageArchive}
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Label returns the display form used in progress tables.
func (s Stage) Label() string {
	return titleCaser.String(s.String())
}

// ParseStage resolves a stage by name or 1-based position.
func ParseStage(value string) (Stage, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for stage, name := range stageNames {
		if value == name {
			return stage, nil
		}
	}
	switch value {
	case "1", "2", "3", "4", "5":
		return Stage(value[0] - '0'), nil
	}
	return 0, fmt.Errorf("unknown stage %q (expected intake, metadata, prepare, sync, or archive)", value)
}
