// Package predict はバースト推論の集計を行う
//
// 同じキャンバスに対して複数回の推論を行い、クラスごとの確率を平均して
// 最も確率の高いクラスを結果とする。
package predict

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kulitscan/internal/classifier"
)

// DefaultSamples は1回の判定で平均する推論回数
const DefaultSamples = 10

var (
	// ErrNoSamples は推論結果が1件もない場合のエラー
	ErrNoSamples = errors.New("推論結果がありません")
	// ErrNoClasses はクラスが1つもない場合のエラー
	ErrNoClasses = errors.New("クラスがありません")
)

// Score は1クラスの平均確率
type Score struct {
	ClassName   string  `json:"className"`
	Probability float64 `json:"probability"`
}

// Result はバースト推論の結果
type Result struct {
	ID          uuid.UUID     `json:"id"`
	Class       string        `json:"class"`
	Probability float64       `json:"probability"`
	Scores      []Score       `json:"scores"`
	Samples     int           `json:"samples"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
}

// Percentage は確率をパーセントで返す
func (r Result) Percentage() float64 {
	return r.Probability * 100
}

// Message は結果の文章を返す
func (r Result) Message() string {
	return fmt.Sprintf("Kulitmu kemungkinan memiliki penyakit %s dengan persentase %.2f%%", r.Class, r.Percentage())
}

// Aggregate は複数回の推論結果を平均して最も確率の高いクラスを選ぶ
//
// クラスは最初に現れた順に並ぶ。ある回に含まれないクラスはその回0として扱う。
// 平均が同じ場合は先に現れたクラスが選ばれる。
func Aggregate(samples [][]classifier.Prediction) (Result, error) {
	return aggregate(nil, samples)
}

// aggregate は order のクラスを先頭に並べてから集計する
func aggregate(order []string, samples [][]classifier.Prediction) (Result, error) {
	if len(samples) == 0 {
		return Result{}, ErrNoSamples
	}

	index := make(map[string]int)
	var scores []Score
	add := func(name string) int {
		i, ok := index[name]
		if !ok {
			i = len(scores)
			index[name] = i
			scores = append(scores, Score{ClassName: name})
		}
		return i
	}

	for _, name := range order {
		add(name)
	}
	for _, sample := range samples {
		for _, p := range sample {
			scores[add(p.ClassName)].Probability += p.Probability
		}
	}

	if len(scores) == 0 {
		return Result{}, ErrNoClasses
	}

	n := float64(len(samples))
	for i := range scores {
		scores[i].Probability /= n
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i].Probability > scores[best].Probability {
			best = i
		}
	}

	return Result{
		Class:       scores[best].ClassName,
		Probability: scores[best].Probability,
		Scores:      scores,
		Samples:     len(samples),
	}, nil
}
