// Package account 把游戏事件转交给账户服务一侧保存。
// 保存是异步的，任何存储错误都不会影响正在进行的游戏。
package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hoshinonyaruko/stack-in-im/game"
	"github.com/hoshinonyaruko/stack-in-im/structs"
	"go.uber.org/zap"
)

// Store 保存和查询成绩
type Store interface {
	SaveResult(ctx context.Context, result structs.GameResult) error
	ResultsByPlayer(ctx context.Context, playerID string) ([]structs.GameResult, error)
	Close() error
}

// Recorder 在游戏结束时把成绩放进队列，由后台 goroutine 写入 Store
type Recorder struct {
	store  Store
	logger *zap.Logger
	queue  chan structs.GameResult
	now    func() time.Time
	saveTO time.Duration
}

// NewRecorder creates a recorder with a queue of the given size.
func NewRecorder(store Store, buffer int, logger *zap.Logger) *Recorder {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:  store,
		logger: logger,
		queue:  make(chan structs.GameResult, buffer),
		now:    time.Now,
		saveTO: 5 * time.Second,
	}
}

// Submit 非阻塞地提交一条成绩，队列满时丢弃并返回 false
func (r *Recorder) Submit(result structs.GameResult) bool {
	select {
	case r.queue <- result:
		return true
	default:
		r.logger.Warn("result queue full, dropping result",
			zap.String("openid", result.PlayerID),
			zap.Int("score", result.Score))
		return false
	}
}

// Run 消费队列直到 ctx 结束，结束前把剩余的成绩写完
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case result := <-r.queue:
			r.save(result)
		case <-ctx.Done():
			for {
				select {
				case result := <-r.queue:
					r.save(result)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) save(result structs.GameResult) {
	ctx, cancel := context.WithTimeout(context.Background(), r.saveTO)
	defer cancel()
	if err := r.store.SaveResult(ctx, result); err != nil {
		r.logger.Error("save result failed",
			zap.String("openid", result.PlayerID),
			zap.Int("score", result.Score),
			zap.Error(err))
		return
	}
	r.logger.Info("result saved",
		zap.String("openid", result.PlayerID),
		zap.Int("score", result.Score),
		zap.String("prize", result.Prize))
}

// Listener 返回某局游戏的监听者，游戏结束时提交成绩
func (r *Recorder) Listener(sessionID, playerID string) game.Listener {
	return game.ListenerFuncs{
		GameOver: func(finalScore int) {
			r.Submit(structs.GameResult{
				ID:       uuid.NewString(),
				PlayerID: playerID,
				Score:    finalScore,
				Prize:    PotentialPrize(finalScore),
				PlayedAt: r.now(),
			})
		},
	}
}

// Results 查询玩家的历史成绩，新的在前
func (r *Recorder) Results(ctx context.Context, playerID string) ([]structs.GameResult, error) {
	return r.store.ResultsByPlayer(ctx, playerID)
}
