package processing

import "time"

// Command is an external instruction delivered to a running job.
type Command string

const (
	CmdConfirm       Command = "confirm"
	CmdReject        Command = "reject"
	CmdAbort         Command = "abort"
	CmdStopRecording Command = "stop_recording"
)

const commandQueueSize = 8

// commandQueue is the bounded channel carrying user decisions into the job
// thread. Receives are timeout-bounded; the caller interprets a timeout as
// implicit confirm (approval) or stop-record (recording).
type commandQueue struct {
	ch chan Command
}

func newCommandQueue() *commandQueue {
	return &commandQueue{ch: make(chan Command, commandQueueSize)}
}

// push enqueues without blocking. A full queue drops the command; user input
// at that rate means the job thread stalled and will time out anyway.
func (q *commandQueue) push(cmd Command) bool {
	select {
	case q.ch <- cmd:
		return true
	default:
		return false
	}
}

// get blocks up to timeout for the next command. The second return is false
// on timeout.
func (q *commandQueue) get(timeout time.Duration) (Command, bool) {
	if timeout <= 0 {
		select {
		case cmd := <-q.ch:
			return cmd, true
		default:
			return "", false
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case cmd := <-q.ch:
		return cmd, true
	case <-timer.C:
		return "", false
	}
}
