package services

import (
	"fmt"
	"net"
	"time"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// StreamSocketPath is MEng.System.Runtime.StreamSocket's class path.
const StreamSocketPath = "MEng.System.Runtime.StreamSocket"

// DatagramSocketPath is MEng.System.Runtime.DatagramSocket's class path.
const DatagramSocketPath = "MEng.System.Runtime.DatagramSocket"

const (
	errOrdConnFailed uint32 = iota + 1
	errOrdNotConnected
	errOrdWriteErr
	errOrdReadErr
	errOrdBindFailed
	errOrdSendFailed
)

type streamSocketStorage struct {
	conn net.Conn
}

// StreamSocket is MEng.System.Runtime.StreamSocket: a connected TCP
// client, grounded on CIDMacroEng_SockClasses_.hpp's
// TMEngStreamSocketInfo (Connect/Close/GetIsConnected/ReadBuffer/
// WriteBuffer/Shutdown), using stdlib net.Dial in place of the
// original's TClientStreamSocket. SetNagle has no Go stdlib knob
// exposed through net.Conn without a type assertion to *net.TCPConn,
// so it is folded into Connect as a fixed NoDelay(true) rather than
// exposed as its own method.
type StreamSocket struct {
	idConnect, idClose, idGetIsConnected ids.MethodID
	idReadBuffer, idWriteBuffer          ids.MethodID
	idShutdown                           ids.MethodID
}

func NewStreamSocket() *StreamSocket { return &StreamSocket{} }

func (s *StreamSocket) Path() string { return StreamSocketPath }

func (s *StreamSocket) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(s.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"Connect": &s.idConnect, "Close": &s.idClose, "GetIsConnected": &s.idGetIsConnected,
		"ReadBuffer": &s.idReadBuffer, "WriteBuffer": &s.idWriteBuffer, "Shutdown": &s.idShutdown,
	} {
		id, err := reg.NextMethodID(desc.ID)
		if err != nil {
			return nil, err
		}
		*target = id
		if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: name, ReturnClassID: desc.ID}); err != nil {
			return nil, err
		}
	}
	return desc, nil
}

func (s *StreamSocket) MakeStorage(bool) classmeta.Payload { return &streamSocketStorage{} }

func (s *StreamSocket) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*streamSocketStorage)
	if store == nil {
		store = &streamSocketStorage{}
		receiver.Payload = store
	}

	switch methodID {
	case s.idConnect:
		addr := net.JoinHostPort(strArg(args, 0), fmt.Sprint(intArg(args, 1)))
		conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdConnFailed, err.Error())
		}
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetNoDelay(true)
		}
		store.conn = conn
		return receiver, true, nil

	case s.idClose:
		if store.conn != nil {
			store.conn.Close()
			store.conn = nil
		}
		return receiver, true, nil

	case s.idGetIsConnected:
		return classmeta.NewValueObject(ids.InvalidClassID, store.conn != nil), true, nil

	case s.idReadBuffer:
		if store.conn == nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdNotConnected, "socket is not connected")
		}
		buf := make([]byte, intArg(args, 0))
		n, err := store.conn.Read(buf)
		if err != nil && n == 0 {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdReadErr, err.Error())
		}
		return classmeta.NewValueObject(ids.InvalidClassID, buf[:n]), true, nil

	case s.idWriteBuffer:
		if store.conn == nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdNotConnected, "socket is not connected")
		}
		if _, err := store.conn.Write(bytesArg(args, 0)); err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdWriteErr, err.Error())
		}
		return receiver, true, nil

	case s.idShutdown:
		if tcpConn, ok := store.conn.(*net.TCPConn); ok {
			tcpConn.CloseWrite()
		}
		return receiver, true, nil
	}
	return nil, false, nil
}

type datagramSocketStorage struct {
	conn *net.UDPConn
}

// DatagramSocket is MEng.System.Runtime.DatagramSocket: an unconnected
// or remote-bound UDP endpoint, grounded on
// CIDMacroEng_SockClasses_.hpp's TMEngDatagramSocketInfo
// (BindListen/BindLocal/BindForRemote/SendTo/Close). BindListen and
// BindLocal both open a local listening endpoint (the original
// distinguishes a multi-interface bind from a single-address one,
// a distinction net.ListenUDP does not surface); BindForRemote dials
// instead, fixing the peer address for subsequent SendTo calls made
// without a destination.
type DatagramSocket struct {
	idBindListen, idBindLocal, idBindForRemote ids.MethodID
	idSendTo, idClose                          ids.MethodID
}

func NewDatagramSocket() *DatagramSocket { return &DatagramSocket{} }

func (d *DatagramSocket) Path() string { return DatagramSocketPath }

func (d *DatagramSocket) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(d.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"BindListen": &d.idBindListen, "BindLocal": &d.idBindLocal, "BindForRemote": &d.idBindForRemote,
		"SendTo": &d.idSendTo, "Close": &d.idClose,
	} {
		id, err := reg.NextMethodID(desc.ID)
		if err != nil {
			return nil, err
		}
		*target = id
		if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: name, ReturnClassID: desc.ID}); err != nil {
			return nil, err
		}
	}
	return desc, nil
}

func (d *DatagramSocket) MakeStorage(bool) classmeta.Payload { return &datagramSocketStorage{} }

func (d *DatagramSocket) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*datagramSocketStorage)
	if store == nil {
		store = &datagramSocketStorage{}
		receiver.Payload = store
	}

	switch methodID {
	case d.idBindListen, d.idBindLocal:
		addr := &net.UDPAddr{Port: intArg(args, 0)}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdBindFailed, err.Error())
		}
		if store.conn != nil {
			store.conn.Close()
		}
		store.conn = conn
		return receiver, true, nil

	case d.idBindForRemote:
		raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(strArg(args, 0), fmt.Sprint(intArg(args, 1))))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdBindFailed, err.Error())
		}
		conn, err := net.DialUDP("udp", nil, raddr)
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdBindFailed, err.Error())
		}
		if store.conn != nil {
			store.conn.Close()
		}
		store.conn = conn
		return receiver, true, nil

	case d.idSendTo:
		if store.conn == nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdNotConnected, "socket is not bound")
		}
		payload := bytesArg(args, 2)
		host, port := strArg(args, 0), intArg(args, 1)
		var err error
		if host == "" {
			_, err = store.conn.Write(payload)
		} else {
			raddr := &net.UDPAddr{IP: net.ParseIP(host), Port: port}
			_, err = store.conn.WriteToUDP(payload, raddr)
		}
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdSendFailed, err.Error())
		}
		return receiver, true, nil

	case d.idClose:
		if store.conn != nil {
			store.conn.Close()
			store.conn = nil
		}
		return receiver, true, nil
	}
	return nil, false, nil
}
