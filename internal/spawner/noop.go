package spawner

import "context"

// Noop is a spawner that completes instantly without doing any work.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (Noop) Spawn(_ context.Context, _ *SpawnRequest) (Handle, error) {
	return noopHandle{}, nil
}

func (Noop) Name() string {
	return "noop"
}

type noopHandle struct{}

func (noopHandle) Wait() error      { return nil }
func (noopHandle) Terminate() error { return nil }
func (noopHandle) PID() int         { return 0 }
