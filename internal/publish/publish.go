package publish

import (
	"context"
	"errors"
	"fmt"

	"course-dedupe/internal/concurrency"
	"course-dedupe/internal/config"
	"course-dedupe/internal/export"
	"course-dedupe/internal/logger"
)

// Sink stores one rendered report document somewhere.
type Sink interface {
	Name() string
	Publish(ctx context.Context, doc export.Document) error
}

// All publishes every document to every sink concurrently. A failing sink
// does not stop the others; all failures are joined in the result.
func All(ctx context.Context, sinks []Sink, docs []export.Document, log *logger.Logger) error {
	type job struct {
		sink Sink
		doc  export.Document
	}
	var jobs []job
	for _, s := range sinks {
		for _, d := range docs {
			jobs = append(jobs, job{sink: s, doc: d})
		}
	}

	errs := concurrency.ForEach(ctx, jobs, concurrency.DefaultOptions(), func(ctx context.Context, _ int, j job) error {
		if err := j.sink.Publish(ctx, j.doc); err != nil {
			log.Warn("publish failed", "sink", j.sink.Name(), "document", j.doc.Name, "error", err)
			return fmt.Errorf("publish %s to %s: %w", j.doc.Name, j.sink.Name(), err)
		}
		log.Info("report published", "sink", j.sink.Name(), "document", j.doc.Name, "bytes", len(j.doc.Data))
		return nil
	})
	return errors.Join(errs...)
}

// FromConfig builds the sinks enabled in cfg. The file sink is always
// present; SFTP, GCS and webhook sinks are added when configured. The
// returned closer releases clients held by the sinks.
func FromConfig(ctx context.Context, cfg config.Config) ([]Sink, func() error, error) {
	sinks := []Sink{NewFileSink(cfg.ReportDir)}
	closers := []func() error{}
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	if cfg.SFTPEnabled() {
		sinks = append(sinks, NewSFTPSink(sftpConfig(cfg)))
	}
	if cfg.GCSBucket != "" {
		gcs, err := NewGCSSink(ctx, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, gcs)
		closers = append(closers, gcs.Close)
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, NewWebhookSink(cfg.WebhookURL, cfg.WebhookToken, nil))
	}
	return sinks, closeAll, nil
}
