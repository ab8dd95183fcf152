package publish

import (
	"bytes"
	"context"
	"time"

	"course-dedupe/internal/config"
	"course-dedupe/internal/export"
	"course-dedupe/internal/sftpclient"
)

// SFTPSink uploads documents to the configured SFTP directory.
type SFTPSink struct {
	cfg    sftpclient.Config
	upload func(ctx context.Context, cfg sftpclient.Config, doc export.Document) error
}

func NewSFTPSink(cfg sftpclient.Config) *SFTPSink {
	return &SFTPSink{cfg: cfg, upload: func(ctx context.Context, cfg sftpclient.Config, doc export.Document) error {
		return sftpclient.Upload(ctx, cfg, bytes.NewReader(doc.Data), doc.Name)
	}}
}

func (s *SFTPSink) Name() string { return "sftp:" + s.cfg.Host }

func (s *SFTPSink) Publish(ctx context.Context, doc export.Document) error {
	return s.upload(ctx, s.cfg, doc)
}

func sftpConfig(cfg config.Config) sftpclient.Config {
	return sftpclient.Config{
		Host:                  cfg.SFTPHost,
		Port:                  cfg.SFTPPort,
		User:                  cfg.SFTPUser,
		Pass:                  cfg.SFTPPass,
		RemoteDir:             cfg.SFTPDir,
		InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
		KnownHostsPath:        cfg.SFTPKnownHosts,
		Timeout:               20 * time.Second,
	}
}
