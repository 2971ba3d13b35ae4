package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/codepulse/codepulse/internal/agent"
	"github.com/codepulse/codepulse/internal/config"
	"github.com/codepulse/codepulse/internal/logging"
	"github.com/codepulse/codepulse/internal/model"
	"github.com/codepulse/codepulse/internal/queue"
)

const signalScannerMaxBuffer = 1 << 20

// NewRunCmd creates the run command: the long-lived agent the host
// editor adapter spawns. Activity signals arrive as JSON lines on
// stdin; status snapshots leave as JSON lines on stdout.
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the agent, reading host signals from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogPath, cfg.LogLevel, cfg.LogFormat)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			q := openQueue(ctx, cfg, log)
			defer q.Close() //nolint:errcheck

			a := agent.New(cfg, q, log)
			a.Status().AddListener(&statusPrinter{out: json.NewEncoder(os.Stdout)})

			if watcher, err := config.NewWatcher(configPath, a.ApplyConfig); err == nil {
				go watcher.Run(ctx)
			} else {
				log.WithError(err).Warn("config watch unavailable")
			}

			go a.Run(ctx)

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 64*1024), signalScannerMaxBuffer)
			for scanner.Scan() {
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}
				var sig model.Signal
				if err := json.Unmarshal(line, &sig); err != nil {
					log.WithError(err).Debug("ignoring malformed signal line")
					continue
				}
				a.HandleSignal(sig)
				if ctx.Err() != nil {
					break
				}
			}
			if err := scanner.Err(); err != nil && ctx.Err() == nil {
				return fmt.Errorf("read signals: %w", err)
			}
			return nil
		},
	}
}

// openQueue opens the durable queue, degrading to an in-memory queue
// when the store is unreadable so a corrupt file never blocks startup.
func openQueue(ctx context.Context, cfg config.Config, log *logrus.Logger) queue.Queue {
	store, err := queue.Open(ctx, cfg.QueuePath)
	if err != nil {
		log.WithError(err).Warn("offline queue unavailable, continuing in memory")
		return queue.NewMemory()
	}
	return store
}

type statusPrinter struct {
	mu  sync.Mutex
	out *json.Encoder
}

func (p *statusPrinter) StatusChanged(snap model.StatusSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.out.Encode(snap)
}
