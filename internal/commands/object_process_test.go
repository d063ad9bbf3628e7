package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"gdaserver/internal/config"
	"gdaserver/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execDef(mode string, grace time.Duration) config.ObjectServerDefinition {
	return config.ObjectServerDefinition{
		Profile:      "main",
		Kind:         config.ObjectServerKindExec,
		Command:      helperArgv(mode),
		Env:          helperEnv,
		StartupGrace: grace,
	}
}

func TestExecStarter_AbsentWhenChildExitsDuringGrace(t *testing.T) {
	start, err := newExecStarter(execDef("exit", 5*time.Second))
	require.NoError(t, err)

	svc, err := ObjectCommand{Profile: "main", Start: start}.Execute(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, svc, "an early exit yields no handle")
}

func TestExecStarter_GracefulShutdown(t *testing.T) {
	start, err := newExecStarter(execDef("sleep", 100*time.Millisecond))
	require.NoError(t, err)

	svc, err := start(context.Background())
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "main", svc.GetProfile())

	status, err := services.Check(context.Background(), svc)
	assert.NoError(t, err)
	assert.Equal(t, services.HealthHealthy, status)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))

	status, err = services.Check(context.Background(), svc)
	assert.Error(t, err)
	assert.Equal(t, services.HealthUnhealthy, status)
}

func TestExecStarter_KillsWhenSIGTERMIgnored(t *testing.T) {
	start, err := newExecStarter(execDef("ignore-term", 500*time.Millisecond))
	require.NoError(t, err)

	svc, err := start(context.Background())
	require.NoError(t, err)
	require.NotNil(t, svc)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err = svc.Shutdown(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ignored SIGTERM")

	status, _ := services.Check(context.Background(), svc)
	assert.Equal(t, services.HealthUnhealthy, status)
}

func TestExecStarter_CancelledDuringGrace(t *testing.T) {
	start, err := newExecStarter(execDef("sleep", time.Minute))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	svc, err := start(ctx)
	assert.Nil(t, svc)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExecStarter_RequiresCommand(t *testing.T) {
	_, err := newExecStarter(config.ObjectServerDefinition{Profile: "empty"})
	assert.EqualError(t, err, "object server empty has no command")
}

type stubService struct{ profile string }

func (s stubService) GetProfile() string                 { return s.profile }
func (s stubService) Shutdown(ctx context.Context) error { return nil }

type pointerService struct{}

func (s *pointerService) GetProfile() string                 { return "main" }
func (s *pointerService) Shutdown(ctx context.Context) error { return nil }

func TestObjectCommand_Execute(t *testing.T) {
	tests := []struct {
		name        string
		start       Starter
		wantService bool
		wantErr     string
	}{
		{
			name: "service",
			start: func(ctx context.Context) (services.Service, error) {
				return stubService{profile: "main"}, nil
			},
			wantService: true,
		},
		{
			name: "absent",
			start: func(ctx context.Context) (services.Service, error) {
				return nil, nil
			},
		},
		{
			name: "nil pointer",
			start: func(ctx context.Context) (services.Service, error) {
				var svc *pointerService
				return svc, nil
			},
		},
		{
			name: "error",
			start: func(ctx context.Context) (services.Service, error) {
				return stubService{}, errors.New("spring context failed")
			},
			wantErr: "failed to launch main: spring context failed",
		},
		{
			name: "panic",
			start: func(ctx context.Context) (services.Service, error) {
				panic("nil finder")
			},
			wantErr: "failed to launch main: panic during bring-up: nil finder",
		},
		{
			name:    "no starter",
			wantErr: "failed to launch main: no starter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := ObjectCommand{Profile: "main", Start: tt.start}.Execute(context.Background())
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				assert.Nil(t, svc)
				var launchErr *LaunchError
				assert.True(t, errors.As(err, &launchErr))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantService, svc != nil)
			if !tt.wantService {
				assert.True(t, svc == nil, "absent server must be an untyped nil")
			}
		})
	}
}
