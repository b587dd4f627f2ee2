package models

import "time"

// FlashOutcome - итог задания прошивки.
type FlashOutcome string

const (
	OutcomeSuccess FlashOutcome = "success"
	OutcomeFailed  FlashOutcome = "failed"
	// OutcomeSimulated - задание прошло без ошибок на программаторе,
	// который не пишет данные в чип.
	OutcomeSimulated FlashOutcome = "simulated"
)

// FlashedImage - запись об одной строке задания.
type FlashedImage struct {
	Offset   uint32 `json:"offset"`
	FileName string `json:"fileName,omitempty"`
	Size     int    `json:"size"`
	Checksum string `json:"checksum"`
}

// FlashRecord - запись истории прошивок.
type FlashRecord struct {
	ID         string
	PortName   string
	Chip       ChipIdentity
	Images     []FlashedImage
	Outcome    FlashOutcome
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}
