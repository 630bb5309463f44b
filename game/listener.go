package game

// Listener 接收一局游戏对外报告的事件，实现方即账户服务一侧。
// 回调在模拟循环内同步调用，实现方不能阻塞。
type Listener interface {
	OnGameStart()
	OnScoreUpdate(score int)
	OnGameOver(finalScore int)
}

// ListenerFuncs adapts plain functions to Listener; nil fields are skipped.
type ListenerFuncs struct {
	Start       func()
	ScoreUpdate func(score int)
	GameOver    func(finalScore int)
}

func (l ListenerFuncs) OnGameStart() {
	if l.Start != nil {
		l.Start()
	}
}

func (l ListenerFuncs) OnScoreUpdate(score int) {
	if l.ScoreUpdate != nil {
		l.ScoreUpdate(score)
	}
}

func (l ListenerFuncs) OnGameOver(finalScore int) {
	if l.GameOver != nil {
		l.GameOver(finalScore)
	}
}

// Listeners fans every event out to each listener in order.
type Listeners []Listener

func (ls Listeners) OnGameStart() {
	for _, l := range ls {
		l.OnGameStart()
	}
}

func (ls Listeners) OnScoreUpdate(score int) {
	for _, l := range ls {
		l.OnScoreUpdate(score)
	}
}

func (ls Listeners) OnGameOver(finalScore int) {
	for _, l := range ls {
		l.OnGameOver(finalScore)
	}
}
