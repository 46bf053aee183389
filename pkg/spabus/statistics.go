// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import (
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames     uint64
	ValidFrames     uint64
	UnknownFrames   uint64
	SegmentErrors   uint64
	PositionErrors  uint64
	ButtonConflicts uint64
	LEDReserved     uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on the validation errors of one frame
func (s *Statistics) Update(validationErrors []ValidationError) {
	s.TotalFrames++

	if len(validationErrors) == 0 {
		s.ValidFrames++
	}
	for _, err := range validationErrors {
		switch err.Type {
		case ANOMALY_UNKNOWN_FRAME:
			s.UnknownFrames++
		case ANOMALY_SEGMENT_PATTERN:
			s.SegmentErrors++
		case ANOMALY_MULTIPLE_POSITIONS:
			s.PositionErrors++
		case ANOMALY_MULTIPLE_BUTTONS:
			s.ButtonConflicts++
		case ANOMALY_LED_RESERVED_BITS:
			s.LEDReserved++
		}
	}

	s.LastUpdateTime = time.Now()
}

func (s *Statistics) errors() uint64 {
	return s.UnknownFrames + s.SegmentErrors + s.PositionErrors + s.ButtonConflicts + s.LEDReserved
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, errorPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		errorPercent = float64(s.errors()) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)

	if s.errors() > 0 {
		result += fmt.Sprintf("Anomalies:       %8d (%.1f%%)\n", s.errors(), errorPercent)
		if s.UnknownFrames > 0 {
			result += fmt.Sprintf("  Unknown Frames:   %5d\n", s.UnknownFrames)
		}
		if s.SegmentErrors > 0 {
			result += fmt.Sprintf("  Segment Pattern:  %5d\n", s.SegmentErrors)
		}
		if s.PositionErrors > 0 {
			result += fmt.Sprintf("  Multi Position:   %5d\n", s.PositionErrors)
		}
		if s.ButtonConflicts > 0 {
			result += fmt.Sprintf("  Multi Button:     %5d\n", s.ButtonConflicts)
		}
		if s.LEDReserved > 0 {
			result += fmt.Sprintf("  LED Reserved:     %5d\n", s.LEDReserved)
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
