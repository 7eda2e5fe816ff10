package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Activity kinds published after completed actions.
const (
	ActivityUploaded       = "content.uploaded"
	ActivitySummarized     = "content.summarized"
	ActivityChatted        = "chat.answered"
	ActivityHomeworkSolved = "homework.solved"
	ActivityHintRevealed   = "homework.hint_revealed"
	ActivitySolutionShown  = "homework.solution_shown"
	ActivityQuizGenerated  = "exam.generated"
	ActivityQuizGraded     = "exam.graded"
	ActivityLessonCreated  = "learning.lesson_created"
	ActivityTeacherUpload  = "teacher.uploaded"
)

// ActivityEvent describes a completed learner or teacher action.
type ActivityEvent struct {
	Kind      string            `json:"kind"`
	SessionID string            `json:"session_id"`
	UserID    string            `json:"user_id"`
	At        time.Time         `json:"at"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// ActivityPublisher fans activity events out to subscribers.
type ActivityPublisher interface {
	Publish(ctx context.Context, event ActivityEvent)
}

type activityPublisher struct {
	nats         *nats.Conn
	natsSubject  string
	redis        *redis.Client
	redisChannel string
	logger       zerolog.Logger
}

// NewActivityPublisher publishes to NATS subject "<channel>.activity" and Redis
// channel "<channel>:activity" for whichever transport is configured. With
// neither, events are only logged.
func NewActivityPublisher(natsConn *nats.Conn, redisClient *redis.Client, channelBase string, logger zerolog.Logger) ActivityPublisher {
	natsSubject := ""
	redisChannel := ""
	if channelBase != "" {
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".activity"
		redisChannel = channelBase + ":activity"
	}

	return &activityPublisher{
		nats:         natsConn,
		natsSubject:  natsSubject,
		redis:        redisClient,
		redisChannel: redisChannel,
		logger:       logger.With().Str("component", "activity_publisher").Logger(),
	}
}

func (p *activityPublisher) Publish(ctx context.Context, event ActivityEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	logger := p.logger.With().Str("kind", event.Kind).Str("session_id", event.SessionID).Logger()
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Warn().Err(err).Msg("encode activity event")
		return
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			logger.Warn().Err(err).Msg("publish activity to nats")
		}
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(context.WithoutCancel(ctx), p.redisChannel, payload).Err(); err != nil {
			logger.Warn().Err(err).Msg("publish activity to redis")
		}
	}

	logger.Info().Interface("attrs", event.Attrs).Msg("activity")
}

type nopActivity struct{}

func (nopActivity) Publish(context.Context, ActivityEvent) {}

func activityOrNop(p ActivityPublisher) ActivityPublisher {
	if p == nil {
		return nopActivity{}
	}
	return p
}
