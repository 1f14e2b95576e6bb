// Package artnet implements the Art-Net ArtDMX sink: a rate-limited UDP
// output that frames panel states into the bit-exact wire packet described
// in spec.md §6.1.
package artnet

import (
	"encoding/binary"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rgbcct/panelfx/internal/grid"
	"github.com/rgbcct/panelfx/internal/logger"
	"golang.org/x/sys/unix"
)

const (
	dmxChannels  = 512
	headerLength = 18
	opCodeDMX    = 0x5000
	protocolVer  = 14
)

var artNetID = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

// Config configures one Art-Net sink.
type Config struct {
	Enabled          bool    `json:"enabled"`
	Host             string  `json:"host"`
	Port             int     `json:"port"`
	Net              int     `json:"net"`      // 0-127
	Subnet           int     `json:"subnet"`   // 0-15
	Universe         int     `json:"universe"` // 0-15
	StartChannel     int     `json:"startChannel"`     // 1-512
	ChannelsPerPanel int     `json:"channelsPerPanel"` // 5 for RGBCCT
	RefreshRateHz    float64 `json:"refreshRateHz"`
}

// DefaultConfig matches spec.md's stated defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		Port:             6454,
		StartChannel:     1,
		ChannelsPerPanel: 5,
		RefreshRateHz:    44,
	}
}

// Output is the Art-Net UDP sink. It satisfies engine.Output.
type Output struct {
	mu       sync.Mutex
	cfg      Config
	conn     *net.UDPConn
	addr     *net.UDPAddr
	log      logger.Logger
	sequence byte
	lastSend time.Time
	buf      [dmxChannels]byte // one fixed allocation, reused every frame
}

// New resolves the configured host:port and opens the UDP socket. If the
// config is disabled, New still returns a usable (inert) Output.
func New(cfg Config, log logger.Logger) (*Output, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	o := &Output{cfg: cfg, log: log}
	if !cfg.Enabled {
		return o, nil
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}
	addr, err := net.ResolveUDPAddr("udp4", hostPort(cfg.Host, cfg.Port))
	if err != nil {
		conn.Close()
		return nil, err
	}
	if isBroadcastAddr(cfg.Host) {
		if err := setBroadcast(conn); err != nil {
			conn.Close()
			return nil, err
		}
	}
	o.conn = conn
	o.addr = addr
	return o, nil
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// isBroadcastAddr reports whether host is an IPv4 broadcast address (the
// limited broadcast 255.255.255.255 or a directed broadcast ending in
// .255), which on Linux/BSD requires SO_BROADCAST on the sending socket.
func isBroadcastAddr(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	ip4 := ip.To4()
	return ip4 != nil && ip4[3] == 255
}

// setBroadcast sets SO_BROADCAST on conn's underlying file descriptor so
// sendto() to a broadcast address doesn't fail with EACCES.
func setBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// Render implements engine.Output: it builds and sends one ArtDMX packet,
// subject to the configured refresh-rate throttle.
func (o *Output) Render(states []grid.State, _ grid.TopologyMode) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.cfg.Enabled || o.conn == nil {
		return
	}
	if o.cfg.RefreshRateHz > 0 {
		minInterval := time.Duration(1000/o.cfg.RefreshRateHz) * time.Millisecond
		if !o.lastSend.IsZero() && time.Since(o.lastSend) < minInterval {
			return
		}
	}

	o.fillBuffer(states)
	packet := o.buildPacket()

	if _, err := o.conn.WriteToUDP(packet, o.addr); err != nil {
		o.log.Error("artnet: send to %s failed: %v", o.addr, err)
		return
	}
	o.lastSend = time.Now()
	o.sequence++ // wraps at 256 automatically since it's a byte
}

// fillBuffer zeroes the reused DMX buffer then writes each panel's
// brightness-scaled channels at its base offset, skipping panels that
// would overflow the 512-channel universe.
func (o *Output) fillBuffer(states []grid.State) {
	for i := range o.buf {
		o.buf[i] = 0
	}

	base0 := o.cfg.StartChannel - 1
	stride := o.cfg.ChannelsPerPanel
	for i, s := range states {
		base := base0 + i*stride
		if base < 0 || base+stride > dmxChannels {
			continue
		}
		scale := func(c int) byte {
			v := int(math.Round(float64(c) * s.Brightness))
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			return byte(v)
		}
		o.buf[base+0] = scale(s.Color.R)
		o.buf[base+1] = scale(s.Color.G)
		o.buf[base+2] = scale(s.Color.B)
		o.buf[base+3] = scale(s.Color.Cool)
		o.buf[base+4] = scale(s.Color.Warm)
	}
}

// buildPacket frames the 18-byte ArtDMX header and the 512-byte data
// payload per spec.md §6.1.
func (o *Output) buildPacket() []byte {
	packet := make([]byte, headerLength+dmxChannels)
	copy(packet[0:8], artNetID[:])
	binary.LittleEndian.PutUint16(packet[8:10], uint16(opCodeDMX))
	binary.BigEndian.PutUint16(packet[10:12], uint16(protocolVer))
	packet[12] = o.sequence
	packet[13] = 0 // Physical, always 0
	portAddress := uint16(o.cfg.Net)<<8 | uint16(o.cfg.Subnet)<<4 | uint16(o.cfg.Universe)
	binary.LittleEndian.PutUint16(packet[14:16], portAddress)
	binary.BigEndian.PutUint16(packet[16:18], uint16(dmxChannels))
	copy(packet[18:], o.buf[:])
	return packet
}

// Close sends one final all-zero packet (blackout) then releases the
// socket.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.conn == nil {
		return nil
	}
	for i := range o.buf {
		o.buf[i] = 0
	}
	packet := o.buildPacket()
	if _, err := o.conn.WriteToUDP(packet, o.addr); err != nil {
		o.log.Error("artnet: final blackout send failed: %v", err)
	}
	err := o.conn.Close()
	o.conn = nil
	return err
}
