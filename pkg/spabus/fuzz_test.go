// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 200
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 200
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// checkReadings fails on any published value outside its domain
func checkReadings(t *testing.T, s *Spa) {
	t.Helper()
	if temp, ok := s.ActWaterTempCelsius(); ok && (temp < waterTempMin || temp > waterTempMax) {
		t.Fatalf("ActWaterTempCelsius() = %d out of range", temp)
	}
	if temp, ok := s.DesiredWaterTempCelsius(); ok && (temp < waterTempMin || temp > waterTempMax) {
		t.Fatalf("DesiredWaterTempCelsius() = %d out of range", temp)
	}
	if s.DroppedFrames() > s.TotalFrames() {
		t.Fatalf("dropped %d > total %d", s.DroppedFrames(), s.TotalFrames())
	}
	if code := s.ErrorCode(); code != "" && code[0] != 'E' {
		t.Fatalf("ErrorCode() = %q", code)
	}
}

// ============================================================
// Fuzz Tests
// ============================================================

func TestFuzz_RandomEdges(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		model := ModelSBH20
		if rng.Intn(2) == 1 {
			model = ModelSJBHS
		}
		s := newTestSpa(t, model)

		for i := 0; i < 5000; i++ {
			s.OnClockRising(rng.Intn(2) == 1, rng.Intn(8) == 0)
		}
		checkReadings(t, s)
	}
}

func TestFuzz_RandomFrames(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		s := newTestSpa(t, ModelSJBHS)
		s.arm(ButtonPower, uint32(rng.Intn(30)))

		for i := 0; i < 500; i++ {
			var frame uint16
			switch rng.Intn(4) {
			case 0:
				frame = uint16(rng.Intn(1 << 16))
			case 1:
				frame = DigitFrame(1+rng.Intn(4), "0123456789CFEH "[rng.Intn(15)])
			case 2:
				frame = FrameLED | uint16(rng.Intn(1<<14))&^DigitPositions
			default:
				frame = FrameCue
			}
			sendFrame(s, frame)
		}
		checkReadings(t, s)

		c := s.Counters()
		sum := c.Cue + c.Digit + c.LED + c.Button + c.Unknown
		if sum > c.Total {
			t.Fatalf("classified %d frames of %d", sum, c.Total)
		}
	}
}
