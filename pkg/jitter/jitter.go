// Package jitter размазывает задержки переподключения и сроки жизни ключей кэша,
// чтобы клиенты не приходили к брокеру и в БД одновременно.
package jitter

import (
	"math/rand/v2"
	"time"
)

// DefaultJitter добавляет к задержке до 50%.
const DefaultJitter = 0.5

// Duration возвращает d плюс случайную добавку из [0, d*factor).
// При factor <= 0 или d <= 0 возвращает d без изменений.
func Duration(d time.Duration, factor float64) time.Duration {
	return withRand(d, factor, rand.Float64)
}

func withRand(d time.Duration, factor float64, float func() float64) time.Duration {
	if d <= 0 || factor <= 0 {
		return d
	}

	return d + time.Duration(float()*factor*float64(d))
}

// ExponentialBackoff: base * 2^attempt, не больше max, затем джиттер.
// attempt считается с нуля.
func ExponentialBackoff(base, max time.Duration, attempt int, factor float64) time.Duration {
	return Duration(backoff(base, max, attempt), factor)
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		if d >= max/2 {
			return max
		}
		d *= 2
	}

	if d > max {
		return max
	}

	return d
}
