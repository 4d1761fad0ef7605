package detector

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/gammalab-data/specfit/internal/units"
)

// Channel is one row of the channel map: the electronics address and the
// physical location plus quadratic energy calibration it maps to.
type Channel struct {
	Address   uint32  `db:"address"`
	Subsystem string  `db:"subsystem"`
	Detector  int     `db:"detector"`
	Segment   int     `db:"segment"`
	CalOffset float64 `db:"cal_offset"`
	CalGain   float64 `db:"cal_gain"`
	CalQuad   float64 `db:"cal_quad"`
}

// Calibrate converts a raw charge to energy in keV using the channel's
// quadratic calibration.
func (c *Channel) Calibrate(charge float64) float64 {
	return units.ChannelToEnergy(charge, c.CalOffset, c.CalGain, c.CalQuad)
}

// ChannelMap resolves electronics addresses to channels. It is loaded once
// per run and read-only afterwards.
type ChannelMap struct {
	channels map[uint32]*Channel
}

// NewChannelMap builds a map from explicit channel rows, the path tests and
// manual calibrations use.
func NewChannelMap(channels []Channel) *ChannelMap {
	m := &ChannelMap{channels: make(map[uint32]*Channel, len(channels))}
	for i := range channels {
		ch := channels[i]
		m.channels[ch.Address] = &ch
	}
	return m
}

// LoadChannelMap reads the full channel table for a subsystem. An empty
// subsystem loads every row.
func LoadChannelMap(ctx context.Context, db *sqlx.DB, subsystem string) (*ChannelMap, error) {
	query := `SELECT address, subsystem, detector, segment, cal_offset, cal_gain, cal_quad
		FROM channels`
	args := []interface{}{}
	if subsystem != "" {
		query += ` WHERE subsystem = ?`
		args = append(args, subsystem)
	}

	rows, err := db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	m := &ChannelMap{channels: make(map[uint32]*Channel)}
	for rows.Next() {
		var ch Channel
		if err := rows.StructScan(&ch); err != nil {
			return nil, fmt.Errorf("scan channel row: %w", err)
		}
		m.channels[ch.Address] = &ch
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read channels: %w", err)
	}
	return m, nil
}

// Lookup returns the channel for an address.
func (m *ChannelMap) Lookup(address uint32) (*Channel, bool) {
	ch, ok := m.channels[address]
	return ch, ok
}

// Len returns the number of mapped addresses.
func (m *ChannelMap) Len() int { return len(m.channels) }

// Addresses returns all mapped addresses in ascending order.
func (m *ChannelMap) Addresses() []uint32 {
	addrs := maps.Keys(m.channels)
	slices.Sort(addrs)
	return addrs
}
