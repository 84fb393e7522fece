package ledger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"time"

	"github.com/poltergeist/callcenter/pkg/types"
)

// Binary layout, big-endian:
//
//	magic "CCLG" | version u16 | next id i64
//	call count u32 | calls...
//	agent count u32 | agents...
//	crc32 (IEEE) of everything before it
//
// call:  id i64 | priority u8 | duration u32 | enqueued unix nanos i64 | name str | phone str
// agent: id u32 | status u8 | current call id i64 | current caller str | handled u64 | time spent u64
// str:   length u16 | utf-8 bytes
const (
	formatVersion uint16 = 1
	trailerSize          = 4
)

var magic = [4]byte{'C', 'C', 'L', 'G'}

const (
	statusAvailable uint8 = 0
	statusBusy      uint8 = 1
)

type encoder struct {
	buf bytes.Buffer
	err error
}

func (e *encoder) write(v interface{}) {
	if e.err != nil {
		return
	}
	e.err = binary.Write(&e.buf, binary.BigEndian, v)
}

func (e *encoder) writeString(s string) {
	if e.err != nil {
		return
	}
	if len(s) > math.MaxUint16 {
		e.err = fmt.Errorf("string of %d bytes exceeds record limit", len(s))
		return
	}
	e.write(uint16(len(s)))
	if e.err == nil {
		e.buf.WriteString(s)
	}
}

func encodeTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func decodeTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// encodeSnapshot renders a snapshot in the versioned binary format
func encodeSnapshot(s *Snapshot) ([]byte, error) {
	e := &encoder{}

	e.write(magic)
	e.write(formatVersion)
	e.write(s.NextID)

	e.write(uint32(len(s.Calls)))
	for _, c := range s.Calls {
		e.write(c.ID)
		e.write(uint8(c.Priority))
		e.write(uint32(c.Duration))
		e.write(encodeTime(c.EnqueuedAt))
		e.writeString(c.CallerName)
		e.writeString(c.PhoneNumber)
	}

	e.write(uint32(len(s.Agents)))
	for _, a := range s.Agents {
		status := statusAvailable
		if a.Status == types.AgentStatusBusy {
			status = statusBusy
		}
		e.write(uint32(a.ID))
		e.write(status)
		e.write(a.CurrentCallID)
		e.writeString(a.CurrentCaller)
		e.write(uint64(a.CallsHandled))
		e.write(uint64(a.TimeSpent))
	}

	if e.err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", e.err)
	}

	sum := crc32.ChecksumIEEE(e.buf.Bytes())
	e.write(sum)
	if e.err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", e.err)
	}

	return e.buf.Bytes(), nil
}

type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) read(v interface{}) {
	if d.err != nil {
		return
	}
	if err := binary.Read(d.r, binary.BigEndian, v); err != nil {
		d.err = err
	}
}

func (d *decoder) readString() string {
	var n uint16
	d.read(&n)
	if d.err != nil {
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.err = err
		return ""
	}
	return string(b)
}

// decodeSnapshot parses and verifies the binary format.
// Every failure wraps types.ErrCorruptLedger.
func decodeSnapshot(data []byte) (*Snapshot, error) {
	if len(data) < len(magic)+2+trailerSize {
		return nil, corrupt("file is %d bytes, too short for a header", len(data))
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, corrupt("bad magic %q", data[:len(magic)])
	}

	body, trailer := data[:len(data)-trailerSize], data[len(data)-trailerSize:]
	if want, got := binary.BigEndian.Uint32(trailer), crc32.ChecksumIEEE(body); want != got {
		return nil, corrupt("checksum mismatch: stored %08x, computed %08x", want, got)
	}

	d := &decoder{r: bytes.NewReader(body[len(magic):])}

	var version uint16
	d.read(&version)
	if d.err == nil && version != formatVersion {
		return nil, corrupt("unsupported version %d", version)
	}

	s := &Snapshot{}
	d.read(&s.NextID)

	var callCount uint32
	d.read(&callCount)
	if d.err == nil && int64(callCount) > int64(d.r.Len()) {
		return nil, corrupt("call count %d exceeds remaining data", callCount)
	}
	for i := uint32(0); i < callCount && d.err == nil; i++ {
		var (
			id       int64
			priority uint8
			duration uint32
			enqueued int64
		)
		d.read(&id)
		d.read(&priority)
		d.read(&duration)
		d.read(&enqueued)
		name := d.readString()
		phone := d.readString()
		if d.err != nil {
			break
		}
		if !types.Priority(priority).IsValid() {
			return nil, corrupt("call %d has unknown priority %d", id, priority)
		}
		s.Calls = append(s.Calls, types.Call{
			ID:          id,
			Priority:    types.Priority(priority),
			Duration:    int(duration),
			CallerName:  name,
			PhoneNumber: phone,
			EnqueuedAt:  decodeTime(enqueued),
		})
	}

	var agentCount uint32
	d.read(&agentCount)
	if d.err == nil && int64(agentCount) > int64(d.r.Len()) {
		return nil, corrupt("agent count %d exceeds remaining data", agentCount)
	}
	for i := uint32(0); i < agentCount && d.err == nil; i++ {
		var (
			id       uint32
			status   uint8
			callID   int64
			handled  uint64
			timeUsed uint64
		)
		d.read(&id)
		d.read(&status)
		d.read(&callID)
		caller := d.readString()
		d.read(&handled)
		d.read(&timeUsed)
		if d.err != nil {
			break
		}

		var agentStatus types.AgentStatus
		switch status {
		case statusAvailable:
			agentStatus = types.AgentStatusAvailable
		case statusBusy:
			agentStatus = types.AgentStatusBusy
		default:
			return nil, corrupt("agent %d has unknown status %d", id, status)
		}

		s.Agents = append(s.Agents, types.AgentRecord{
			ID:            int(id),
			Status:        agentStatus,
			CurrentCallID: callID,
			CurrentCaller: caller,
			CallsHandled:  int(handled),
			TimeSpent:     int(timeUsed),
		})
	}

	if d.err != nil {
		if errors.Is(d.err, io.EOF) || errors.Is(d.err, io.ErrUnexpectedEOF) {
			return nil, corrupt("truncated record")
		}
		return nil, corrupt("%v", d.err)
	}
	if d.r.Len() != 0 {
		return nil, corrupt("%d trailing bytes after agent records", d.r.Len())
	}

	return s, nil
}
