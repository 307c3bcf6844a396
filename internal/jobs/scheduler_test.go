package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"steeple/internal/repository"
	"steeple/internal/service"
)

type noopForumRepo struct{ repository.ForumRepository }

type noopBadgeRepo struct{ repository.BadgeRepository }

type noopAutomationRepo struct{ repository.AutomationRepository }

func TestScheduler_StartStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	badges := service.NewBadgeService(noopBadgeRepo{}, noopForumRepo{}, logger)
	automation := service.NewAutomationService(noopAutomationRepo{}, nil, logger)

	s := NewScheduler(badges, automation, logger)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
