package emu

import "io"

// Linux syscall numbers understood by the workloads.
const (
	SyscallWrite uint64 = 64 // write(fd, buf, count)
	SyscallExit  uint64 = 93 // exit(status)
)

// Linux error codes.
const (
	EBADF  = 9  // Bad file descriptor
	ENOSYS = 38 // Function not implemented
	EIO    = 5  // I/O error
	EFAULT = 14 // Bad address
)

// MaxWriteCount bounds the buffer a single write may copy out of guest memory.
const MaxWriteCount = 1 << 20

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64
}

// SyscallHandler handles system calls for one hardware thread.
type SyscallHandler interface {
	// Handle executes the syscall indicated by the register file state:
	// number in X8, arguments in X0-X2, return value in X0.
	Handle() SyscallResult
}

// DefaultSyscallHandler implements write and exit.
type DefaultSyscallHandler struct {
	regFile *RegFile
	memory  *Memory
	stdout  io.Writer
	stderr  io.Writer
}

// NewDefaultSyscallHandler creates a default syscall handler. Nil writers
// discard output.
func NewDefaultSyscallHandler(regFile *RegFile, memory *Memory, stdout, stderr io.Writer) *DefaultSyscallHandler {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	return &DefaultSyscallHandler{
		regFile: regFile,
		memory:  memory,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// Handle executes the syscall indicated by the register file state.
func (h *DefaultSyscallHandler) Handle() SyscallResult {
	switch h.regFile.ReadReg(8) {
	case SyscallWrite:
		return h.handleWrite()
	case SyscallExit:
		return SyscallResult{
			Exited:   true,
			ExitCode: int64(h.regFile.ReadReg(0)),
		}
	default:
		h.setError(ENOSYS)
		return SyscallResult{}
	}
}

func (h *DefaultSyscallHandler) handleWrite() SyscallResult {
	fd := h.regFile.ReadReg(0)
	bufPtr := h.regFile.ReadReg(1)
	count := h.regFile.ReadReg(2)

	var writer io.Writer
	switch fd {
	case 1:
		writer = h.stdout
	case 2:
		writer = h.stderr
	default:
		h.setError(EBADF)
		return SyscallResult{}
	}

	if count > MaxWriteCount || bufPtr+count < bufPtr {
		h.setError(EFAULT)
		return SyscallResult{}
	}

	n, err := writer.Write(h.memory.ReadBytes(bufPtr, count))
	if err != nil {
		h.setError(EIO)
		return SyscallResult{}
	}

	h.regFile.WriteReg(0, uint64(n))
	return SyscallResult{}
}

// setError sets X0 to -errno (as two's complement).
func (h *DefaultSyscallHandler) setError(errno int) {
	h.regFile.WriteReg(0, uint64(-int64(errno)))
}
