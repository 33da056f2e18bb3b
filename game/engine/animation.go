package engine

import (
	"sort"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Channel separates independent animations of the same item.
type Channel string

const (
	ChannelPosition Channel = "position"
	ChannelAngle    Channel = "angle"
)

type animKey struct {
	item    string
	channel Channel
}

type animTask struct {
	tween    *gween.Tween
	onChange func(progress float64)
	onFinish func()
}

// Animator runs fire-and-forget tweens keyed by item and channel. Starting a
// task on a key cancels whatever ran there. Tasks only move view values and
// never touch grids or the pool.
type Animator struct {
	tasks map[animKey]*animTask
}

// NewAnimator creates an idle animator.
func NewAnimator() *Animator {
	return &Animator{tasks: make(map[animKey]*animTask)}
}

// Start animates progress from 0 to 1 over duration seconds. onChange sees each
// intermediate progress value and onFinish runs once the tween completes or is
// settled. A non-positive duration finishes on the next Tick.
func (a *Animator) Start(itemID string, ch Channel, duration float64, onChange func(float64), onFinish func()) {
	a.tasks[animKey{itemID, ch}] = &animTask{
		tween:    gween.New(0, 1, float32(duration), ease.OutQuad),
		onChange: onChange,
		onFinish: onFinish,
	}
}

// Cancel drops the task on key without running its finish callback.
func (a *Animator) Cancel(itemID string, ch Channel) {
	delete(a.tasks, animKey{itemID, ch})
}

// CancelItem drops every task of an item.
func (a *Animator) CancelItem(itemID string) {
	for k := range a.tasks {
		if k.item == itemID {
			delete(a.tasks, k)
		}
	}
}

// Settle completes every task of an item immediately.
func (a *Animator) Settle(itemID string) {
	for _, k := range a.keys() {
		if k.item != itemID {
			continue
		}
		task := a.tasks[k]
		delete(a.tasks, k)
		task.finish()
	}
}

// Active reports whether the item has any task in flight.
func (a *Animator) Active(itemID string) bool {
	for k := range a.tasks {
		if k.item == itemID {
			return true
		}
	}
	return false
}

// Len is the number of tasks in flight.
func (a *Animator) Len() int { return len(a.tasks) }

// Tick advances every task by dt seconds.
func (a *Animator) Tick(dt float64) {
	var done []*animTask
	for _, k := range a.keys() {
		task := a.tasks[k]
		cur, finished := task.tween.Update(float32(dt))
		if finished {
			delete(a.tasks, k)
			done = append(done, task)
			continue
		}
		if task.onChange != nil {
			task.onChange(float64(cur))
		}
	}
	for _, task := range done {
		task.finish()
	}
}

func (t *animTask) finish() {
	if t.onChange != nil {
		t.onChange(1)
	}
	if t.onFinish != nil {
		t.onFinish()
	}
}

func (a *Animator) keys() []animKey {
	keys := make([]animKey, 0, len(a.tasks))
	for k := range a.tasks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].item != keys[j].item {
			return keys[i].item < keys[j].item
		}
		return keys[i].channel < keys[j].channel
	})
	return keys
}

func lerp(a, b Vec2, t float64) Vec2 {
	return a.Add(b.Sub(a).Scale(t))
}

func lerpFloat(a, b, t float64) float64 {
	return a + (b-a)*t
}
