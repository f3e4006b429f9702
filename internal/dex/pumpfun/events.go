// internal/dex/pumpfun/events.go
package pumpfun

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/layout"
)

const programDataPrefix = "Program data: "

// ErrNotCreateEvent marks log lines that do not carry a CreateEvent.
var ErrNotCreateEvent = errors.New("not a create event")

var createEventDiscriminator = layout.EventDiscriminator("CreateEvent")

// CreateEvent is emitted by the create instruction when a new mint launches.
type CreateEvent struct {
	Name         string
	Symbol       string
	URI          string
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	User         solana.PublicKey
	// Creator is only present in events from newer program versions.
	Creator solana.PublicKey
}

// DecodeCreateEvent decodes a "Program data: <base64>" log line.
func DecodeCreateEvent(line string) (*CreateEvent, error) {
	payload, ok := strings.CutPrefix(strings.TrimSpace(line), programDataPrefix)
	if !ok {
		return nil, ErrNotCreateEvent
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode program data: %w", err)
	}
	if err := layout.CheckDiscriminator("CreateEvent", data, createEventDiscriminator); err != nil {
		if errors.Is(err, layout.ErrDiscriminatorMismatch) {
			return nil, ErrNotCreateEvent
		}
		return nil, err
	}

	dec := bin.NewBorshDecoder(data[layout.DiscriminatorSize:])
	var ev struct {
		Name         string
		Symbol       string
		URI          string
		Mint         solana.PublicKey
		BondingCurve solana.PublicKey
		User         solana.PublicKey
	}
	if err := dec.Decode(&ev); err != nil {
		return nil, fmt.Errorf("failed to decode create event: %w", err)
	}

	out := &CreateEvent{
		Name:         ev.Name,
		Symbol:       ev.Symbol,
		URI:          ev.URI,
		Mint:         ev.Mint,
		BondingCurve: ev.BondingCurve,
		User:         ev.User,
	}
	if dec.Remaining() >= solana.PublicKeyLength {
		raw, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err == nil {
			out.Creator = solana.PublicKeyFromBytes(raw)
		}
	}
	return out, nil
}

// FindCreateEvent scans transaction logs for the first CreateEvent.
func FindCreateEvent(logs []string) (*CreateEvent, bool) {
	for _, line := range logs {
		if !strings.HasPrefix(line, programDataPrefix) {
			continue
		}
		ev, err := DecodeCreateEvent(line)
		if err == nil {
			return ev, true
		}
	}
	return nil, false
}
