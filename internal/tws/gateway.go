// Package tws speaks the TWS socket protocol: null-separated ASCII fields in
// length-prefixed frames. It implements the blocking gateway the broker
// client offloads onto; callers must never hold locks across these calls.
package tws

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/vostrik/tradedesk/internal/broker"
)

// Outgoing message ids.
const (
	msgPlaceOrder        = 3
	msgCancelOrder       = 4
	msgReqHistoricalData = 20
	msgStartAPI          = 71
)

// Incoming message ids.
const (
	msgErr            = 4
	msgHistoricalData = 17
)

const (
	dialTimeout    = 10 * time.Second
	requestTimeout = 30 * time.Second

	// TWS throttles at 50 messages per second.
	maxMessagesPerSecond = 50
)

// Conn is one authenticated gateway connection. All requests are blocking:
// a write goes out, and calls that expect data read frames until their reply
// arrives. One historical request may be in flight at a time.
type Conn struct {
	log      zerolog.Logger
	conn     net.Conn
	limiter  *rate.Limiter
	clientID int

	writeMu sync.Mutex
	readMu  sync.Mutex

	nextReqID int
	reqMu     sync.Mutex
}

// Dial connects, performs the v100+ handshake, and sends startAPI.
func Dial(host string, port, clientID int, log zerolog.Logger) (*Conn, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	c := &Conn{
		log:       log.With().Str("component", "tws").Int("client_id", clientID).Logger(),
		conn:      conn,
		limiter:   rate.NewLimiter(rate.Limit(maxMessagesPerSecond), maxMessagesPerSecond),
		clientID:  clientID,
		nextReqID: 1,
	}

	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}

	c.log.Info().Str("addr", addr).Msg("connected to gateway")
	return c, nil
}

// Dialer adapts Dial to the broker client's constructor.
func Dialer(log zerolog.Logger) broker.Dialer {
	return func(host string, port, clientID int) (broker.Gateway, error) {
		return Dial(host, port, clientID, log)
	}
}

// handshake sends "API\0v<min>..<max>\0", reads the server banner, then
// identifies the session with startAPI.
func (c *Conn) handshake() error {
	greeting := append([]byte("API\x00"), []byte("v100..151\x00")...)
	if _, err := c.conn.Write(greeting); err != nil {
		return fmt.Errorf("write greeting: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(dialTimeout))
	defer c.conn.SetReadDeadline(time.Time{})
	banner, err := c.readFrame()
	if err != nil {
		return fmt.Errorf("read banner: %w", err)
	}
	c.log.Debug().Int("fields", len(banner)).Msg("handshake banner")

	return c.writeFields(msgStartAPI, 2, c.clientID)
}

// readFrame reads one length-prefixed frame and splits it into fields.
func (c *Conn) readFrame() ([][]byte, error) {
	var sizeBuf [4]byte
	if _, err := readFull(c.conn, sizeBuf[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(sizeBuf[:])
	if size == 0 || size > 1<<20 {
		return nil, fmt.Errorf("implausible frame size %d", size)
	}
	payload := make([]byte, size)
	if _, err := readFull(c.conn, payload); err != nil {
		return nil, err
	}
	// Trailing NUL terminates the last field; drop the empty tail.
	fields := bytes.Split(bytes.TrimSuffix(payload, []byte{0}), []byte{0})
	return fields, nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// writeFields encodes the values as null-separated ASCII in one frame.
func (c *Conn) writeFields(values ...any) error {
	if err := c.limiter.Wait(context.Background()); err != nil {
		return err
	}

	var body bytes.Buffer
	for _, v := range values {
		switch x := v.(type) {
		case string:
			body.WriteString(x)
		case int:
			body.WriteString(strconv.Itoa(x))
		case float64:
			body.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
		case bool:
			if x {
				body.WriteByte('1')
			} else {
				body.WriteByte('0')
			}
		default:
			return fmt.Errorf("unsupported field type %T", v)
		}
		body.WriteByte(0)
	}

	frame := make([]byte, 4+body.Len())
	binary.BigEndian.PutUint32(frame[:4], uint32(body.Len()))
	copy(frame[4:], body.Bytes())

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(requestTimeout))
	defer c.conn.SetWriteDeadline(time.Time{})
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *Conn) allocReqID() int {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	id := c.nextReqID
	c.nextReqID++
	return id
}

// PlaceOrder submits an order under the given broker order id. Contract and
// order fields follow the placeOrder wire layout for LMT and STP orders.
func (c *Conn) PlaceOrder(orderID int, contract broker.Contract, order broker.Order) error {
	c.log.Info().Int("order_id", orderID).Str("symbol", contract.Symbol).
		Str("type", order.OrderType).Str("action", order.Action).Msg("placing order")

	return c.writeFields(
		msgPlaceOrder,
		orderID,
		contract.Symbol,
		contract.SecType,
		contract.Exchange,
		contract.Currency,
		order.Action,
		order.Quantity,
		order.OrderType,
		order.LimitPrice,
		order.AuxPrice,
		order.TIF,
		order.ParentID,
		order.Transmit,
	)
}

// CancelOrder cancels a previously placed order.
func (c *Conn) CancelOrder(orderID int) error {
	c.log.Info().Int("order_id", orderID).Msg("cancelling order")
	return c.writeFields(msgCancelOrder, 1, orderID)
}

// HistoricalData requests bars and reads frames until the matching reply
// arrives. end's zero value means "now". Trades only, regular trading hours.
func (c *Conn) HistoricalData(contract broker.Contract, end time.Time, durationDays int, barSize string) ([]broker.Bar, error) {
	reqID := c.allocReqID()

	endStr := ""
	if !end.IsZero() {
		endStr = end.UTC().Format("20060102 15:04:05") + " UTC"
	}

	err := c.writeFields(
		msgReqHistoricalData,
		reqID,
		contract.Symbol,
		contract.SecType,
		contract.Exchange,
		contract.Currency,
		endStr,
		fmt.Sprintf("%d D", durationDays),
		barSize,
		"TRADES",
		true, // regular trading hours only
		1,    // date format: yyyymmdd
	)
	if err != nil {
		return nil, err
	}

	c.readMu.Lock()
	defer c.readMu.Unlock()

	c.conn.SetReadDeadline(time.Now().Add(requestTimeout))
	defer c.conn.SetReadDeadline(time.Time{})

	for {
		fields, err := c.readFrame()
		if err != nil {
			return nil, fmt.Errorf("read historical data: %w", err)
		}
		if len(fields) < 2 {
			continue
		}
		msgID, _ := strconv.Atoi(string(fields[0]))
		switch msgID {
		case msgHistoricalData:
			gotReq, _ := strconv.Atoi(string(fields[1]))
			if gotReq != reqID {
				continue
			}
			return parseBars(fields)
		case msgErr:
			// error frame: msgID, version, reqID, code, text
			if len(fields) >= 5 {
				gotReq, _ := strconv.Atoi(string(fields[2]))
				if gotReq == reqID {
					return nil, fmt.Errorf("gateway error %s: %s", fields[3], fields[4])
				}
			}
			c.log.Debug().Msg("unrelated gateway error frame")
		default:
			// Unsolicited frames (order status etc.) are skipped; this
			// session has no async consumer for them.
		}
	}
}

// parseBars decodes a historicalData frame: msg id, reqID, start, end, count,
// then eight fields per bar.
func parseBars(fields [][]byte) ([]broker.Bar, error) {
	if len(fields) < 5 {
		return nil, fmt.Errorf("short historical data frame: %d fields", len(fields))
	}
	count, err := strconv.Atoi(string(fields[4]))
	if err != nil {
		return nil, fmt.Errorf("bar count: %w", err)
	}
	const perBar = 8
	if len(fields) < 5+count*perBar {
		return nil, fmt.Errorf("truncated historical data frame: %d fields for %d bars", len(fields), count)
	}

	bars := make([]broker.Bar, 0, count)
	for i := 0; i < count; i++ {
		f := fields[5+i*perBar:]
		ts, err := parseBarTime(string(f[0]))
		if err != nil {
			return nil, err
		}
		open, _ := strconv.ParseFloat(string(f[1]), 64)
		high, _ := strconv.ParseFloat(string(f[2]), 64)
		low, _ := strconv.ParseFloat(string(f[3]), 64)
		clos, _ := strconv.ParseFloat(string(f[4]), 64)
		volume, _ := strconv.ParseInt(string(f[5]), 10, 64)
		wap, _ := strconv.ParseFloat(string(f[6]), 64)
		trades, _ := strconv.ParseInt(string(f[7]), 10, 64)

		bars = append(bars, broker.Bar{
			Time:   ts,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  clos,
			Volume: volume,
			WAP:    wap,
			Count:  trades,
		})
	}
	return bars, nil
}

// parseBarTime accepts the two stamp shapes the gateway emits: a date for
// daily bars and a date-time for intraday bars.
func parseBarTime(s string) (time.Time, error) {
	if ts, err := time.ParseInLocation("20060102", s, time.UTC); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation("20060102 15:04:05", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("bar timestamp %q: %w", s, err)
	}
	return ts, nil
}

// Close tears the connection down.
func (c *Conn) Close() error {
	c.log.Info().Msg("closing gateway connection")
	return c.conn.Close()
}
