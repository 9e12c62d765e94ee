package services

import (
	"net"
	"strconv"
	"testing"
)

func TestStreamSocketConnectWriteRead(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 5)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		conn.Write([]byte("pong"))
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	ctx, desc, rc, recv := newTestClass(t, StreamSocketPath)
	mustInvoke(t, ctx, rc, recv, desc, "Connect", vo(host), vo(int64(port)))

	connected := mustInvoke(t, ctx, rc, recv, desc, "GetIsConnected").Payload.(bool)
	if !connected {
		t.Fatal("GetIsConnected: expected true after Connect")
	}

	mustInvoke(t, ctx, rc, recv, desc, "WriteBuffer", vo([]byte("ping!")))
	reply := mustInvoke(t, ctx, rc, recv, desc, "ReadBuffer", vo(int64(4)))
	if string(reply.Payload.([]byte)) != "pong" {
		t.Fatalf("ReadBuffer: got %q, want pong", reply.Payload)
	}

	mustInvoke(t, ctx, rc, recv, desc, "Close")
	closed := mustInvoke(t, ctx, rc, recv, desc, "GetIsConnected").Payload.(bool)
	if closed {
		t.Fatal("GetIsConnected: expected false after Close")
	}
}

func TestStreamSocketConnectRaisesOnRefusedConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ctx, desc, rc, recv := newTestClass(t, StreamSocketPath)
	_, err = invoke(t, ctx, rc, recv, desc, "Connect", vo("127.0.0.1"), vo(int64(port)))
	if err == nil {
		t.Fatal("expected Connect to raise when nothing is listening on the port")
	}
}

func TestStreamSocketReadBufferRaisesWhenNotConnected(t *testing.T) {
	ctx, desc, rc, recv := newTestClass(t, StreamSocketPath)

	_, err := invoke(t, ctx, rc, recv, desc, "ReadBuffer", vo(int64(16)))
	if err == nil {
		t.Fatal("expected ReadBuffer to raise NotConnected before Connect is called")
	}
}

func TestDatagramSocketBindForRemoteAndSend(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer serverConn.Close()

	addr := serverConn.LocalAddr().(*net.UDPAddr)

	ctx, desc, rc, recv := newTestClass(t, DatagramSocketPath)
	mustInvoke(t, ctx, rc, recv, desc, "BindForRemote", vo("127.0.0.1"), vo(int64(addr.Port)))
	mustInvoke(t, ctx, rc, recv, desc, "SendTo", vo(""), vo(int64(0)), vo([]byte("hello")))

	buf := make([]byte, 16)
	n, _, err := serverConn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("server received %q, want hello", buf[:n])
	}

	mustInvoke(t, ctx, rc, recv, desc, "Close")
}

func TestDatagramSocketSendToRaisesWhenNotBound(t *testing.T) {
	ctx, desc, rc, recv := newTestClass(t, DatagramSocketPath)

	_, err := invoke(t, ctx, rc, recv, desc, "SendTo", vo("127.0.0.1"), vo(int64(9)), vo([]byte("x")))
	if err == nil {
		t.Fatal("expected SendTo to raise NotConnected before any bind call")
	}
}
