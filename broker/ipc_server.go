/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2026 The Elevator Authors. All Rights Reserved.
 */

package broker

import (
	"crypto/sha256"
	"log"
	"net/rpc"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/omahatools/elevator/conf"
	"github.com/omahatools/elevator/elevation"
	"github.com/omahatools/elevator/services"
)

// The pipe is owned by SYSTEM but must be dialable by unprivileged browser
// processes, so authenticated users get read/write while full control stays
// with SYSTEM and administrators. Remote clients are rejected at the pipe
// level; elevation requests never cross machines.
const pipeSDDL = "O:SYG:SYD:P(A;;GA;;;SY)(A;;GA;;;BA)(A;;GRGW;;;AU)"

const pipeBufferSize = 4096

// Server owns one channel's named pipe and serves the wire contract on every
// connection, each in its own goroutine.
type Server struct {
	channel     elevation.Channel
	pipePath    string
	stagingDir  string
	allowedKeys [][sha256.Size]byte

	mu      sync.Mutex
	pending windows.Handle
	closing bool
	conns   sync.WaitGroup
}

func NewServer(channel elevation.Channel) (*Server, error) {
	pipePath, err := services.PipePathOfChannel(channel.Name)
	if err != nil {
		return nil, err
	}
	stagingDir, err := conf.StagingDirectory()
	if err != nil {
		return nil, err
	}
	return &Server{
		channel:     channel,
		pipePath:    pipePath,
		stagingDir:  stagingDir,
		allowedKeys: allowedPublisherKeys(),
	}, nil
}

// Serve accepts pipe connections until Close is called. Each instance of the
// pipe is created fresh, connected synchronously, and handed to a goroutine
// together with the client PID the kernel reports for it.
func (s *Server) Serve() error {
	path16, err := windows.UTF16PtrFromString(s.pipePath)
	if err != nil {
		return err
	}
	sd, err := windows.SecurityDescriptorFromString(pipeSDDL)
	if err != nil {
		return err
	}
	sa := &windows.SecurityAttributes{
		Length:             uint32(unsafe.Sizeof(windows.SecurityAttributes{})),
		SecurityDescriptor: sd,
	}

	// The first instance claims the pipe name so that nothing unprivileged
	// can have squatted on it before us.
	firstInstance := uint32(windows.FILE_FLAG_FIRST_PIPE_INSTANCE)
	for {
		pipe, err := windows.CreateNamedPipe(path16, windows.PIPE_ACCESS_DUPLEX|firstInstance, windows.PIPE_TYPE_BYTE|windows.PIPE_READMODE_BYTE|windows.PIPE_WAIT|windows.PIPE_REJECT_REMOTE_CLIENTS, windows.PIPE_UNLIMITED_INSTANCES, pipeBufferSize, pipeBufferSize, 0, sa)
		if err != nil {
			return err
		}
		firstInstance = 0

		s.mu.Lock()
		if s.closing {
			s.mu.Unlock()
			windows.CloseHandle(pipe)
			return nil
		}
		s.pending = pipe
		s.mu.Unlock()

		err = windows.ConnectNamedPipe(pipe, nil)
		if err == windows.ERROR_PIPE_CONNECTED {
			err = nil
		}

		s.mu.Lock()
		stillOpen := s.pending == pipe
		s.pending = 0
		closing := s.closing
		s.mu.Unlock()
		if closing {
			if stillOpen {
				windows.CloseHandle(pipe)
			}
			return nil
		}
		if err != nil {
			windows.CloseHandle(pipe)
			continue
		}

		var clientPID uint32
		err = windows.GetNamedPipeClientProcessId(pipe, &clientPID)
		if err != nil {
			log.Printf("Unable to determine pipe client process: %v", err)
			windows.DisconnectNamedPipe(pipe)
			windows.CloseHandle(pipe)
			continue
		}

		s.conns.Add(1)
		go s.serveConn(pipe, clientPID)
	}
}

func (s *Server) serveConn(pipe windows.Handle, clientPID uint32) {
	defer s.conns.Done()
	file := os.NewFile(uintptr(pipe), s.pipePath)
	defer file.Close()

	server := rpc.NewServer()
	err := server.RegisterName("Elevator", &Elevator{server: s, clientPID: clientPID})
	if err != nil {
		log.Printf("Unable to register RPC receiver: %v", err)
		return
	}
	server.ServeConn(file)
}

// Close unblocks Serve and waits for in-flight calls to finish.
func (s *Server) Close() {
	s.mu.Lock()
	s.closing = true
	if s.pending != 0 {
		windows.CloseHandle(s.pending)
		s.pending = 0
	}
	s.mu.Unlock()
	s.conns.Wait()
}
