package nats

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Mirai3103/remote-grader/internal/models"
)

// SubmissionProcessor handles one decoded submission.
type SubmissionProcessor interface {
	HandleSubmission(submission models.Submission)
}

type Subscriber struct {
	nc                *nats.Conn
	subject           string
	queueGroup        string
	submissionHandler SubmissionProcessor
	log               *zap.SugaredLogger
}

func NewSubscriber(nc *nats.Conn, subject, queueGroup string, handler SubmissionProcessor, log *zap.SugaredLogger) *Subscriber {
	return &Subscriber{
		nc:                nc,
		subject:           subject,
		queueGroup:        queueGroup,
		submissionHandler: handler,
		log:               log,
	}
}

// SubscribeToSubmissions hands every message to the processor on its own
// goroutine; the processor bounds concurrency.
func (s *Subscriber) SubscribeToSubmissions() (*nats.Subscription, error) {
	subscription, err := s.nc.QueueSubscribe(s.subject, s.queueGroup, func(msg *nats.Msg) {
		var sub models.Submission
		if err := json.Unmarshal(msg.Data, &sub); err != nil {
			s.log.Errorw("dropping undecodable submission", "subject", msg.Subject, "error", err, "bytes", len(msg.Data))
			return
		}
		s.log.Debugw("received submission", "submissionId", sub.ID, "subject", msg.Subject)
		go s.submissionHandler.HandleSubmission(sub)
	})
	if err != nil {
		s.log.Errorw("failed to subscribe", "subject", s.subject, "error", err)
		return nil, err
	}
	s.log.Infow("subscribed", "subject", s.subject, "queueGroup", s.queueGroup)
	return subscription, nil
}
