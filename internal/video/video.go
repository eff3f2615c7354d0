package video

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/shotscan/internal/cache"
	"github.com/kikiluvv/shotscan/internal/decode"
	"github.com/kikiluvv/shotscan/internal/ffmpeg"
	"github.com/kikiluvv/shotscan/internal/metrics"
)

// AddMode selects how UpdateData combines a value with what is stored.
type AddMode int

const (
	// AddLast appends the value to the list kept under the key.
	AddLast AddMode = iota
	// AddFull replaces whatever is kept under the key.
	AddFull
)

// Video is the cached state of one video file. It is not safe for
// concurrent use.
type Video struct {
	Path string
	Key  string

	store  *Store
	logger zerolog.Logger

	slots  slots
	status Status
	cached bool // meta came from the cache

	src         decode.Source // open only while metadata is being collected
	streams     *ffmpeg.StreamInfo
	streamsErr  error
	streamsDone bool

	data        map[string]json.RawMessage
	dataFlushed bool // the blob lives on disk, not in memory
}

func (v *Video) Status() Status { return v.status }

// Cached reports whether the metadata was loaded from the cache.
func (v *Video) Cached() bool { return v.cached }

// Meta returns a copy of the collected attributes.
func (v *Video) Meta() Meta { return v.slots.snapshot() }

// Logger returns the video-scoped logger.
func (v *Video) Logger() zerolog.Logger { return v.logger }

// Invalidate forgets every memoized attribute so the next collection
// recomputes them. Cached records on disk are left alone; see Delete.
func (v *Video) Invalidate() {
	v.slots = slots{}
	v.streams, v.streamsErr, v.streamsDone = nil, nil, false
}

// Delete removes the video's cached records and resets the handle.
func (v *Video) Delete() error {
	if err := v.store.cache.Remove(v.Key); err != nil {
		return err
	}
	v.Invalidate()
	v.status = StatusInitiated
	v.cached = false
	v.data = nil
	v.dataFlushed = false
	return nil
}

// SetStatus moves the status towards status and optionally persists it.
func (v *Video) SetStatus(status Status, save bool) error {
	v.status = advance(v.status, status)
	if save {
		return v.SaveMeta()
	}
	return nil
}

// SaveMeta persists the attributes and status as one record and releases the
// decode handle if it is still open.
func (v *Video) SaveMeta() error {
	v.status = advance(v.status, StatusMetaCollected)

	b, err := json.Marshal(record{Meta: v.slots.snapshot(), Status: v.status})
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := v.store.cache.Write(v.Key, cache.MetaSuffix, b); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	v.releaseSource()
	return nil
}

func (v *Video) releaseSource() {
	if v.src == nil {
		return
	}
	if err := v.src.Release(); err != nil {
		v.logger.Warn().Err(err).Msg("releasing decode handle failed")
	}
	v.src = nil
}

// Timestamp returns the presentation time in seconds of a native frame
// index: the packet timecode for variable frame rate videos, index/fps
// otherwise.
func (v *Video) Timestamp(index int) float64 {
	m := &v.slots
	if m.variable != nil && *m.variable && m.timecodes != nil {
		tc := *m.timecodes
		if index >= 0 && index < len(tc) {
			return tc[index]
		}
	}
	if m.fps == nil || *m.fps <= 0 {
		return 0
	}
	return float64(index) / *m.fps
}

// UpdateData stores value under key. With save the blob is first merged
// with what is on disk, written back and dropped from memory.
func (v *Video) UpdateData(key string, value any, mode AddMode, save bool) error {
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if save || v.dataFlushed {
		if err := v.loadData(); err != nil {
			return err
		}
	}
	if v.data == nil {
		v.data = make(map[string]json.RawMessage)
	}

	switch mode {
	case AddLast:
		var list []json.RawMessage
		if cur, ok := v.data[key]; ok {
			if err := json.Unmarshal(cur, &list); err != nil {
				return fmt.Errorf("append to %s: not a list: %w", key, err)
			}
		}
		list = append(list, raw)
		if v.data[key], err = json.Marshal(list); err != nil {
			return err
		}
	case AddFull:
		v.data[key] = raw
	default:
		return fmt.Errorf("unknown add mode %d", mode)
	}

	if save {
		return v.SaveData()
	}
	return nil
}

// SaveData writes the in-memory blob and clears it to bound memory use.
func (v *Video) SaveData() error {
	if err := v.loadData(); err != nil {
		return err
	}
	b, err := json.Marshal(v.data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	if err := v.store.cache.Write(v.Key, cache.DataSuffix, b); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	v.data = nil
	v.dataFlushed = true
	return nil
}

// Data returns the full blob, reading it back from disk if it was flushed.
func (v *Video) Data() (map[string]json.RawMessage, error) {
	if err := v.loadData(); err != nil {
		return nil, err
	}
	if v.data == nil {
		v.data = make(map[string]json.RawMessage)
	}
	return v.data, nil
}

// GetData decodes the value under key into out.
func (v *Video) GetData(key string, out any) (bool, error) {
	data, err := v.Data()
	if err != nil {
		return false, err
	}
	raw, ok := data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// loadData merges the on-disk blob under the in-memory one. Keys already in
// memory win.
func (v *Video) loadData() error {
	b, ok, err := v.store.cache.Read(v.Key, cache.DataSuffix)
	if err != nil {
		return fmt.Errorf("read data: %w", err)
	}
	v.dataFlushed = false
	if !ok {
		return nil
	}

	var disk map[string]json.RawMessage
	if err := json.Unmarshal(b, &disk); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	if v.data == nil {
		v.data = disk
		return nil
	}
	for k, raw := range disk {
		if _, ok := v.data[k]; !ok {
			v.data[k] = raw
		}
	}
	return nil
}

// computeAll fills every slot. Decoder properties are required; probe
// attributes fall back to their defaults.
func (v *Video) computeAll(ctx context.Context) error {
	if _, err := v.fps(); err != nil {
		return err
	}
	if _, err := v.frameNum(); err != nil {
		return err
	}
	if _, err := v.width(); err != nil {
		return err
	}
	if _, err := v.height(); err != nil {
		return err
	}
	v.rotation(ctx)
	if v.isVariableFPS(ctx) {
		v.timecodes(ctx)
	}
	v.datetime(ctx)
	v.isGopro(ctx)
	return nil
}

func (v *Video) sourceProp(prop decode.Prop) (float64, error) {
	if v.src == nil {
		return 0, fmt.Errorf("%s: decode handle is not open", prop)
	}
	val, err := v.src.Get(prop)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", prop, err)
	}
	return val, nil
}

func (v *Video) fps() (float64, error) {
	if v.slots.fps == nil {
		val, err := v.sourceProp(decode.PropFPS)
		if err != nil {
			return 0, err
		}
		v.slots.fps = &val
	}
	return *v.slots.fps, nil
}

func (v *Video) intProp(slot **int, prop decode.Prop) (int, error) {
	if *slot == nil {
		val, err := v.sourceProp(prop)
		if err != nil {
			return 0, err
		}
		n := int(val)
		*slot = &n
	}
	return **slot, nil
}

func (v *Video) frameNum() (int, error) { return v.intProp(&v.slots.frameNum, decode.PropFrameCount) }
func (v *Video) width() (int, error)    { return v.intProp(&v.slots.width, decode.PropWidth) }
func (v *Video) height() (int, error)   { return v.intProp(&v.slots.height, decode.PropHeight) }

// streamInfo runs the stream probe at most once; several attributes share it.
func (v *Video) streamInfo(ctx context.Context) (*ffmpeg.StreamInfo, error) {
	if !v.streamsDone {
		v.streams, v.streamsErr = v.store.prober.ProbeStreams(ctx, v.Path)
		v.streamsDone = true
	}
	return v.streams, v.streamsErr
}

func (v *Video) probeFailed(field string, err error) {
	metrics.ProbeFailuresTotal.WithLabelValues(field).Inc()
	v.logger.Warn().Err(err).Str("field", field).Msg("probe failed, using default")
}

func (v *Video) rotation(ctx context.Context) int {
	if v.slots.rotation == nil {
		raw, err := v.store.prober.ProbeRotation(ctx, v.Path)
		if err != nil {
			v.probeFailed("rotation", err)
		}
		rot := parseRotation(raw)
		v.slots.rotation = &rot
	}
	return *v.slots.rotation
}

func (v *Video) isVariableFPS(ctx context.Context) bool {
	if v.slots.variable == nil {
		variable, err := v.computeVariableFPS(ctx)
		if err != nil {
			v.probeFailed("is_variable_fps", err)
		}
		v.slots.variable = &variable
	}
	return *v.slots.variable
}

func (v *Video) computeVariableFPS(ctx context.Context) (bool, error) {
	info, err := v.streamInfo(ctx)
	if err != nil {
		return false, err
	}
	vs := info.VideoStream()
	if vs == nil {
		return false, fmt.Errorf("no video stream")
	}
	return variableFPS(vs.AvgFrameRate)
}

func (v *Video) timecodes(ctx context.Context) []float64 {
	if v.slots.timecodes == nil {
		stream := 0
		if info, err := v.streamInfo(ctx); err == nil {
			if vs := info.VideoStream(); vs != nil {
				stream = vs.Index
			}
		}

		var tc []float64
		packets, err := v.store.prober.ProbePackets(ctx, v.Path)
		if err != nil {
			v.probeFailed("frames_timecodes", err)
		} else {
			tc = timecodesFrom(packets, stream)
		}
		v.slots.timecodes = &tc
	}
	return *v.slots.timecodes
}

func (v *Video) datetime(ctx context.Context) string {
	if v.slots.datetime == nil {
		dt := DefaultDatetime
		info, err := v.streamInfo(ctx)
		if err == nil {
			dt, err = datetimeFrom(info)
		}
		if err != nil {
			v.logger.Debug().Err(err).Msg("no creation time, using epoch")
			dt = DefaultDatetime
		}
		v.slots.datetime = &dt
	}
	return *v.slots.datetime
}

func (v *Video) isGopro(ctx context.Context) Tristate {
	if v.slots.isGopro == nil {
		info, err := v.streamInfo(ctx)
		if err != nil {
			v.probeFailed("is_gopro", err)
		}
		g := goproFrom(info)
		v.slots.isGopro = &g
	}
	return *v.slots.isGopro
}
