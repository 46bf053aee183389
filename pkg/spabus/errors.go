// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spabus

import (
	"errors"
	"fmt"
	"strings"
)

// Command errors
var (
	ErrCommandTimeout = errors.New("button press not acknowledged")
	ErrNoReadback     = errors.New("no readback from display")
	ErrNotReady       = errors.New("spa is off or reports an error")
	ErrUnsupported    = errors.New("not supported by this model")
)

// Language selects the error message text
type Language uint8

// Languages
const (
	LanguageCode Language = iota
	LanguageEN
	LanguageDE
)

func (l Language) String() string {
	switch l {
	case LanguageEN:
		return "en"
	case LanguageDE:
		return "de"
	default:
		return "code"
	}
}

// ParseLanguage accepts "code", "en" and "de"
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "code":
		return LanguageCode, nil
	case "en":
		return LanguageEN, nil
	case "de":
		return LanguageDE, nil
	}
	return LanguageCode, fmt.Errorf("unknown language %q (use code, en or de)", s)
}

var errorTexts = []struct {
	code string
	en   string
	de   string
}{
	{"E90", "no water flow", "kein Wasserdurchfluss"},
	{"E91", "salt level too low", "niedriges Salzniveau"},
	{"E92", "salt level too high", "hohes Salzniveau"},
	{"E94", "water temp too low", "Wassertemperatur zu niedrig"},
	{"E95", "water temp too high", "Wassertemperatur zu hoch"},
	{"E96", "system error", "Systemfehler"},
	{"E97", "dry fire protection", "Trocken-Brandschutz"},
	{"E99", "water temp sensor error", "Wassertemperatursensor defekt"},
	{"END", "heating aborted after 72h", "Heizbetrieb nach 72 h deaktiviert"},
}

// ErrorMessage translates an error code. Unknown codes are returned as they
// are, an empty code returns an empty message.
func ErrorMessage(code string, lang Language) string {
	if code == "" || lang == LanguageCode {
		return code
	}
	for _, e := range errorTexts {
		if e.code != code {
			continue
		}
		if lang == LanguageDE {
			return e.de
		}
		return e.en
	}
	return code
}
