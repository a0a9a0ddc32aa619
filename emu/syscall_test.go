package emu_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesweep/emu"
)

var _ = Describe("Syscall Handler", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		stdout  *bytes.Buffer
		stderr  *bytes.Buffer
		handler *emu.DefaultSyscallHandler
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory()
		stdout = new(bytes.Buffer)
		stderr = new(bytes.Buffer)
		handler = emu.NewDefaultSyscallHandler(regFile, memory, stdout, stderr)
	})

	It("should return ENOSYS for unknown syscall numbers", func() {
		regFile.WriteReg(8, 999)

		result := handler.Handle()

		Expect(result.Exited).To(BeFalse())
		var enosys int64 = emu.ENOSYS
		Expect(regFile.ReadReg(0)).To(Equal(uint64(-enosys)))
	})

	It("should return EBADF for an invalid file descriptor", func() {
		regFile.WriteReg(8, emu.SyscallWrite)
		regFile.WriteReg(0, 42)
		regFile.WriteReg(2, 5)

		result := handler.Handle()

		Expect(result.Exited).To(BeFalse())
		var ebadf int64 = emu.EBADF
		Expect(regFile.ReadReg(0)).To(Equal(uint64(-ebadf)))
	})

	It("should write the buffer to stdout and return the byte count", func() {
		memory.WriteBytes(0x2000, []byte("hi\n"))
		regFile.WriteReg(8, emu.SyscallWrite)
		regFile.WriteReg(0, 1)
		regFile.WriteReg(1, 0x2000)
		regFile.WriteReg(2, 3)

		handler.Handle()

		Expect(stdout.String()).To(Equal("hi\n"))
		Expect(stderr.Len()).To(BeZero())
		Expect(regFile.ReadReg(0)).To(Equal(uint64(3)))
	})

	It("should return EFAULT without writing when the count is out of range", func() {
		regFile.WriteReg(8, emu.SyscallWrite)
		regFile.WriteReg(0, 1)
		regFile.WriteReg(1, 0x2000)
		regFile.WriteReg(2, ^uint64(0))

		result := handler.Handle()

		Expect(result.Exited).To(BeFalse())
		Expect(stdout.Len()).To(BeZero())
		var efault int64 = emu.EFAULT
		Expect(regFile.ReadReg(0)).To(Equal(uint64(-efault)))
	})

	It("should return EFAULT when the buffer wraps the address space", func() {
		regFile.WriteReg(8, emu.SyscallWrite)
		regFile.WriteReg(0, 1)
		regFile.WriteReg(1, ^uint64(0)-1)
		regFile.WriteReg(2, 16)

		handler.Handle()

		Expect(stdout.Len()).To(BeZero())
		var efault int64 = emu.EFAULT
		Expect(regFile.ReadReg(0)).To(Equal(uint64(-efault)))
	})

	It("should write fd 2 to stderr", func() {
		memory.WriteBytes(0x2000, []byte("err"))
		regFile.WriteReg(8, emu.SyscallWrite)
		regFile.WriteReg(0, 2)
		regFile.WriteReg(1, 0x2000)
		regFile.WriteReg(2, 3)

		handler.Handle()

		Expect(stderr.String()).To(Equal("err"))
	})

	It("should exit with the status in x0", func() {
		regFile.WriteReg(8, emu.SyscallExit)
		regFile.WriteReg(0, 7)

		result := handler.Handle()

		Expect(result.Exited).To(BeTrue())
		Expect(result.ExitCode).To(Equal(int64(7)))
	})
})
