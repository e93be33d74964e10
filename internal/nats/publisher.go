package nats

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Mirai3103/remote-grader/internal/models"
)

type Publisher struct {
	nc      *nats.Conn
	subject string
	log     *zap.SugaredLogger
}

func NewPublisher(nc *nats.Conn, subject string, log *zap.SugaredLogger) *Publisher {
	return &Publisher{nc: nc, subject: subject, log: log}
}

func (p *Publisher) PublishSubmissionResult(result models.SubmissionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		p.log.Errorw("failed to marshal submission result", "submissionId", result.SubmissionID, "error", err)
		return err
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		p.log.Errorw("failed to publish submission result", "submissionId", result.SubmissionID, "subject", p.subject, "error", err)
		return err
	}
	p.log.Infow("published submission result", "submissionId", result.SubmissionID, "subject", p.subject, "status", result.Status)
	return nil
}
