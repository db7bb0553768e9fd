package vm

import (
	"fmt"

	"github.com/nova-lang/nova/internal/async"
	"github.com/nova-lang/nova/internal/rtvalue"
)

// await implements OpSuspend: it drives future to completion via
// async.Block, which suspends only the current goroutine. Every async
// Nova function body already runs on its own dedicated goroutine (a
// VMBodyFuture, per internal/async/vmfuture.go), so a nested await here
// never blocks a shared executor worker — it just parks the one
// goroutine that is already private to this call.
func (vm *VM) await(future rtvalue.Value) (rtvalue.Value, error) {
	fut, ok := future.Obj.(*ObjFuture)
	if !ok {
		return rtvalue.Unit(), fmt.Errorf("vm: await on a non-future value")
	}
	return async.Block(fut.Future)
}
