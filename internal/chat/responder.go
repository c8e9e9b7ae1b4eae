// Package chat はショッピングアシスタントの応答生成を提供する。
package chat

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Responder はアシスタント応答生成のインターフェース。
// 外部のLLMバックエンドへの差し替えを想定している。
type Responder interface {
	// Respond はユーザーメッセージに対する応答を返す。
	// コンテキストがキャンセルされた場合は応答せずにエラーを返す。
	Respond(ctx context.Context, message string) (string, error)
}

// 固定応答リスト
var cannedResponses = []string{
	"I'd be happy to help you with that! Based on your requirements, I can suggest some great options. What's your budget range?",
	"That's a great choice! The Toyota Camry is known for its reliability. I can set up a watchlist for 2020-2023 models in your area if you'd like.",
	"Let me check the current market prices for that model. Based on recent listings, you can expect to pay between $25,000-$30,000 for a good condition vehicle.",
	"I can help you create a custom search alert for that. What specific features are most important to you - fuel efficiency, safety ratings, or something else?",
	"Great question! I'd recommend looking at certified pre-owned vehicles for the best balance of value and reliability. Would you like me to add that to your watchlist criteria?",
}

// CannedResponder は固定応答リストから一様ランダムに選んで返す実装。
// 入力タイピングを模した遅延を挟む。
// チャットリクエストは並行に処理されるため、rand.Randはミューテックスで保護する。
type CannedResponder struct {
	delayMin time.Duration
	delayMax time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

var _ Responder = (*CannedResponder)(nil)

// NewCannedResponder はCannedResponderを生成する。
// delayMin・delayMaxは応答遅延の範囲。両方0にすると遅延なしで返す。
func NewCannedResponder(delayMin, delayMax time.Duration) *CannedResponder {
	return &CannedResponder{
		delayMin: delayMin,
		delayMax: delayMax,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Respond は固定応答リストからランダムに1件を返す。
// 遅延中にコンテキストがキャンセルされた場合は応答しない。
func (r *CannedResponder) Respond(ctx context.Context, message string) (string, error) {
	delay := r.delayMin
	if r.delayMax > r.delayMin {
		delay += time.Duration(r.randInt63n(int64(r.delayMax - r.delayMin)))
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	return cannedResponses[r.randIntn(len(cannedResponses))], nil
}

func (r *CannedResponder) randInt63n(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Int63n(n)
}

func (r *CannedResponder) randIntn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}
