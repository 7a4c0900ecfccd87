package logging

import (
	"strconv"
	"time"
)

// maxLoggedIDs caps id lists so a large activation does not produce a
// multi-kilobyte line.
const maxLoggedIDs = 20

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }

func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Duration renders value the way time.Duration prints, e.g. "1.5s".
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Error logs a nil err as null.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// IDs logs at most maxLoggedIDs entries of ids followed by a "+N more" marker.
func IDs(key string, ids []string) Field {
	if len(ids) <= maxLoggedIDs {
		return Field{Key: key, Value: ids}
	}
	out := make([]string, maxLoggedIDs+1)
	copy(out, ids[:maxLoggedIDs])
	out[maxLoggedIDs] = "+" + strconv.Itoa(len(ids)-maxLoggedIDs) + " more"
	return Field{Key: key, Value: out}
}

// Latency is reported in fractional milliseconds so log queries can compare
// it numerically.
func Latency(d time.Duration) Field {
	return Field{Key: "latency_ms", Value: float64(d.Microseconds()) / 1000}
}

func Component(name string) Field { return String("component", name) }

func Count(n int) Field { return Int("count", n) }

func Path(p string) Field { return String("path", p) }

func RequestID(id string) Field { return String("request_id", id) }

// Subject is the authenticated caller of a control request.
func Subject(sub string) Field { return String("subject", sub) }

func NodeID(id string) Field { return String("node_id", id) }

func EdgeID(id string) Field { return String("edge_id", id) }

// Version is the authority snapshot version a log line refers to.
func Version(v uint64) Field { return Uint64("version", v) }

// Generation is the scene build generation a log line refers to.
func Generation(g uint64) Field { return Uint64("generation", g) }
