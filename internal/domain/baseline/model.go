package baseline

import "time"

// Snapshot is a persisted export of the detection registry's state,
// captured so baselines survive process restarts.
type Snapshot struct {
	ID         int64     `json:"id"`
	CapturedAt time.Time `json:"captured_at"`
	Metrics    int       `json:"metrics"`
	Datapoints int64     `json:"datapoints"`
	Data       []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
