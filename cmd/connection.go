// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// Connection carries the probe stream: sample bytes in, reply requests out
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// serialReadTimeout bounds a blocking read so the reader notices a cancelled
// session while the bus is silent
const serialReadTimeout = 250 * time.Millisecond

// SerialConnection is a probe on a UART
type SerialConnection struct {
	port serial.Port
}

// Read returns 0, nil when no sample arrived within the read timeout
func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// OpenSerialConnection opens the UART of a probe. The probe streams from
// power-up, so whatever the driver buffered before the open is discarded.
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	if baudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", baudRate)
	}
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	setup := func() error {
		if err := port.SetReadTimeout(serialReadTimeout); err != nil {
			return err
		}
		return port.ResetInputBuffer()
	}
	if err := setup(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set up serial port %s: %w", portName, err)
	}
	return &SerialConnection{port: port}, nil
}

// ErrConnectionClosed is returned by reads after the bridge went away
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConnection is a probe behind a network bridge. The bridge cuts the
// sample stream into binary messages at arbitrary points, the probe decoder
// does not depend on message boundaries. Text messages are bridge status
// lines.
//
// Read and Write may run on different goroutines, one each.
type WebSocketConnection struct {
	conn   *websocket.Conn
	msg    bytes.Reader // rest of the current binary message
	closed bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}
	for w.msg.Len() == 0 {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}
		switch kind {
		case websocket.BinaryMessage:
			w.msg.Reset(data)
		case websocket.TextMessage:
			log.Debug().Str("status", strings.TrimSpace(string(data))).Msg("probe bridge")
		}
	}
	return w.msg.Read(p)
}

// Write forwards reply requests. Each call is sent as one message so a
// request is not held back behind the next one.
func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// dialTimeout bounds the whole WebSocket dial including the handshake
const dialTimeout = 15 * time.Second

// OpenWebSocketConnection dials a probe bridge, with HTTP Basic auth when a
// username and password are given
func OpenWebSocketConnection(ctx context.Context, wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	switch u.Scheme {
	case "ws":
	case "wss":
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: skipSSLVerify}
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}
	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword reads the bridge password from SPALINK_PASSWORD or prompts for it
func GetPassword() (string, error) {
	if pw := os.Getenv("SPALINK_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	defer fmt.Fprintln(os.Stderr)

	pw, err := term.ReadPassword(int(syscall.Stdin))
	if err == nil {
		return string(pw), nil
	}

	// not a terminal
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// source selects where the probe stream comes from
type source struct {
	port        string
	baud        int
	url         string
	username    string
	password    string // prompted for when empty
	noSSLVerify bool
	simulate    bool
}

// flagSource is the source selected by the connection flags
func flagSource() source {
	return source{
		port:        portName,
		baud:        baudRate,
		url:         wsURL,
		username:    wsUsername,
		noSSLVerify: wsNoSSLVerify,
		simulate:    simulate,
	}
}

// OpenConnection opens the probe of src and describes it for the user
func OpenConnection(ctx context.Context, src source) (Connection, string, error) {
	switch {
	case src.url != "":
		password := src.password
		if src.username != "" && password == "" {
			var err error
			if password, err = GetPassword(); err != nil {
				return nil, "", err
			}
		}
		conn, err := OpenWebSocketConnection(ctx, src.url, src.username, password, src.noSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", src.url), nil

	case src.port != "":
		conn, err := OpenSerialConnection(src.port, src.baud)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", src.port, src.baud), nil
	}
	return nil, "", errors.New("either --port, --url or --simulate must be specified")
}
