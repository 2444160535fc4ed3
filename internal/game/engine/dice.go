package engine

import (
	"math/rand"
	"sync"
	"time"
)

// Dice produces a pair of six-sided dice values
type Dice interface {
	Roll() (int, int)
}

// RandomDice rolls from a seeded source so a game can be replayed
type RandomDice struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDice creates dice from a seed; zero seeds from the clock
func NewRandomDice(seed int64) *RandomDice {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomDice{rng: rand.New(rand.NewSource(seed))}
}

// Roll returns two values in 1..6
func (d *RandomDice) Roll() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Intn(6) + 1, d.rng.Intn(6) + 1
}

// FixedDice replays a scripted sequence of rolls, cycling when exhausted
type FixedDice struct {
	rolls [][2]int
	next  int
}

// NewFixedDice creates dice that return rolls in order
func NewFixedDice(rolls ...[2]int) *FixedDice {
	return &FixedDice{rolls: rolls}
}

// Push appends rolls to the script
func (d *FixedDice) Push(rolls ...[2]int) {
	d.rolls = append(d.rolls, rolls...)
}

// Roll returns the next scripted roll
func (d *FixedDice) Roll() (int, int) {
	if len(d.rolls) == 0 {
		return 1, 2
	}
	r := d.rolls[d.next%len(d.rolls)]
	d.next++
	return r[0], r[1]
}
