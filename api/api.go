package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hoshinonyaruko/stack-in-im/account"
	"github.com/hoshinonyaruko/stack-in-im/game"
	"github.com/hoshinonyaruko/stack-in-im/structs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ResultSource 查询历史成绩，account.Recorder 实现了它
type ResultSource interface {
	Results(ctx context.Context, playerID string) ([]structs.GameResult, error)
}

// Deps 是路由需要的全部依赖
type Deps struct {
	Manager  *game.Manager
	Results  ResultSource
	Renderer *Renderer
	Metrics  *Metrics
	Gatherer prometheus.Gatherer // 为空时用默认注册表
	Logger   *zap.Logger
	SelfPath string

	LiveInterval time.Duration // 大于 0 时开启 /ws 快照推送
}

// NewRouter 注册所有路由
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(d.Logger))
	if d.Metrics != nil {
		router.Use(d.Metrics.Instrument())
	}

	// 开始游戏
	router.GET("/start", StartHandler(d.Manager))
	// 玩家点击
	router.GET("/action", ActionHandler(d.Manager, d.Metrics))
	// 当前状态
	router.GET("/state", StateHandler(d.Manager))
	// 换一局
	router.GET("/reset", ResetHandler(d.Manager))
	// 渲染函数 返回静态地址
	router.GET("/render-tower", RenderTowerHandler(d.Manager, d.Renderer, d.SelfPath))
	router.GET("/results", ResultsHandler(d.Results))
	if d.LiveInterval > 0 {
		router.GET("/ws", LiveHandler(d.Manager, d.Metrics, d.LiveInterval, d.Logger))
	}

	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	} else {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if d.Renderer != nil {
		router.Static("/static", d.Renderer.Dir) // 静态文件服务
	}
	return router
}

func requireOpenID(c *gin.Context) (string, bool) {
	openID := c.Query("openid")
	if openID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: openid"})
		return "", false
	}
	return openID, true
}

// prizeInfo 当前分数对应的奖品和下一档
func prizeInfo(score int) gin.H {
	h := gin.H{"prize": account.PotentialPrize(score)}
	if next, ok := account.NextTier(score); ok {
		h["next_tier"] = next
	}
	return h
}

func StartHandler(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		openID, ok := requireOpenID(c)
		if !ok {
			return
		}
		snap, err := m.Start(openID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to start game"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id": snap.SessionID,
			"state":      snap.State,
			"score":      snap.Score,
		})
	}
}

func ActionHandler(m *game.Manager, metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		openID, ok := requireOpenID(c)
		if !ok {
			return
		}
		snap, placement, err := m.Action(openID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to apply action"})
			return
		}
		if metrics != nil {
			metrics.ObservePlacement(placement)
		}

		resp := prizeInfo(snap.Score)
		resp["session_id"] = snap.SessionID
		resp["state"] = snap.State
		resp["score"] = snap.Score
		resp["outcome"] = nil
		if placement != nil {
			resp["outcome"] = placement.Outcome
			resp["overhang"] = placement.Overhang
		}
		c.JSON(http.StatusOK, resp)
	}
}

func StateHandler(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		openID, ok := requireOpenID(c)
		if !ok {
			return
		}
		snap, err := m.Snapshot(openID)
		if errors.Is(err, game.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No game for this openid"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch game"})
			return
		}
		resp := prizeInfo(snap.Score)
		resp["game"] = snap
		c.JSON(http.StatusOK, resp)
	}
}

func ResetHandler(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		openID, ok := requireOpenID(c)
		if !ok {
			return
		}
		snap, err := m.Reset(openID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to reset game"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id": snap.SessionID,
			"state":      snap.State,
			"score":      snap.Score,
		})
	}
}

func RenderTowerHandler(m *game.Manager, r *Renderer, selfPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		openID, ok := requireOpenID(c)
		if !ok {
			return
		}
		if r == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Rendering disabled"})
			return
		}
		snap, err := m.Snapshot(openID)
		if errors.Is(err, game.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No game for this openid"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch game"})
			return
		}

		fileName, err := r.Save(snap, openID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to render tower"})
			return
		}
		imageUrl := fmt.Sprintf("http://%s/static/%s", selfPath, fileName)
		c.JSON(http.StatusOK, gin.H{"image_url": imageUrl, "score": snap.Score, "state": snap.State})
	}
}

func ResultsHandler(src ResultSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		openID, ok := requireOpenID(c)
		if !ok {
			return
		}
		results, err := src.Results(c.Request.Context(), openID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to load results"})
			return
		}
		if results == nil {
			results = []structs.GameResult{}
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}
