package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityKind — тип активности, о которой уведомляется очередь.
type ActivityKind string

const (
	ActivityAttendance ActivityKind = "attendance"
	ActivityBlogPost   ActivityKind = "blog_post"
	ActivityComment    ActivityKind = "comment"
)

// ActivityEvent публикуется после каждой мутации, чтобы шлюз дашборда
// инвалидировал клиентские кэши вместо сплошного поллинга.
type ActivityEvent struct {
	Kind       ActivityKind `json:"kind"`
	UserID     uuid.UUID    `json:"user_id"`
	PeriodID   uuid.UUID    `json:"period_id"`
	OccurredAt time.Time    `json:"occurred_at"`
}
