package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/configs"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/ports"
)

// GenerationService owns the lifecycle of the named, versioned cache
// containers: pre-population at install, retirement of stale generations at
// activation, and full deletion on request.
type GenerationService struct {
	containers ports.CacheContainers
	upstream   ports.Upstream
	cfg        *configs.OfflineConfig
	logger     *logrus.Logger
}

func NewGenerationService(containers ports.CacheContainers, upstream ports.Upstream, cfg *configs.OfflineConfig, logger *logrus.Logger) ports.CacheGenerations {
	return &GenerationService{
		containers: containers,
		upstream:   upstream,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *GenerationService) Names() (string, string) {
	return s.cfg.StaticContainer(), s.cfg.DynamicContainer()
}

// Install pre-populates the static container with the offline asset
// manifest. Individual fetch or store failures are soft: a constrained
// device missing part of the manifest still activates.
func (s *GenerationService) Install(ctx context.Context) error {
	static := s.cfg.StaticContainer()
	s.logger.WithFields(logrus.Fields{"container": static, "assets": len(s.cfg.PrecacheManifest)}).Info("installing cache generation")

	for _, asset := range s.cfg.PrecacheManifest {
		resp, err := s.upstream.Do(ctx, &ports.UpstreamRequest{
			Method:  "GET",
			URL:     asset,
			Timeout: s.cfg.NetworkTimeout,
		})
		if err != nil {
			s.logger.WithFields(logrus.Fields{"asset": asset}).WithError(err).Warn("precache fetch failed, continuing install")
			continue
		}
		if !resp.Successful() {
			s.logger.WithFields(logrus.Fields{"asset": asset, "status": resp.Status}).Warn("precache asset not available, continuing install")
			continue
		}
		if resp.CapturedAt.IsZero() {
			resp.CapturedAt = time.Now()
		}
		if err := s.containers.Put(ctx, static, "GET "+asset, resp); err != nil {
			s.logger.WithFields(logrus.Fields{"asset": asset}).WithError(err).Warn("precache store failed, continuing install")
		}
	}
	return nil
}

// Activate retires every container under the product prefix whose name does
// not match the current static or dynamic generation. Running it twice
// leaves the same two live containers.
func (s *GenerationService) Activate(ctx context.Context) error {
	static, dynamic := s.Names()

	names, err := s.containers.List(ctx, s.cfg.CachePrefix)
	if err != nil {
		return err
	}

	for _, name := range names {
		if name == static || name == dynamic {
			continue
		}
		if err := s.containers.Drop(ctx, name); err != nil {
			s.logger.WithFields(logrus.Fields{"container": name}).WithError(err).Error("failed to retire stale cache generation")
			continue
		}
		s.logger.WithFields(logrus.Fields{"container": name}).Info("retired stale cache generation")
	}

	s.logger.WithFields(logrus.Fields{"static": static, "dynamic": dynamic}).Info("cache generation activated")
	return nil
}

// Purge deletes every container the product owns, live generations included.
func (s *GenerationService) Purge(ctx context.Context) error {
	names, err := s.containers.List(ctx, s.cfg.CachePrefix)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.containers.Drop(ctx, name); err != nil {
			s.logger.WithFields(logrus.Fields{"container": name}).WithError(err).Error("failed to drop cache container")
			continue
		}
	}
	s.logger.WithFields(logrus.Fields{"dropped": len(names)}).Info("all cache containers purged")
	return nil
}
