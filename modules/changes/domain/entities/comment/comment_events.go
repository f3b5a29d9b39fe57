package comment

import "time"

type AddedEvent struct {
	Comment    Comment
	OccurredAt time.Time
}
