package lower

import (
	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/types"
)

// lowerIf lowers `if cond { a } else { b }` into a cond_br to two
// blocks plus a join block taking the value as a block parameter
//.
func (c *Context) lowerIf(n *ast.IfExpr) ir.ValueID {
	cond := c.lowerExpr(n.Cond)

	thenBlk := &ir.BasicBlock{ID: c.freshBlockID()}
	elseBlk := &ir.BasicBlock{ID: c.freshBlockID()}
	joinBlk := &ir.BasicBlock{ID: c.freshBlockID(), Params: []ir.Value{{ID: c.freshValueID(), Type: n.InferredType()}}}
	c.fn.Blocks = append(c.fn.Blocks, thenBlk, elseBlk, joinBlk)

	c.b.CondBr(cond, thenBlk.ID, nil, elseBlk.ID, nil)

	c.b.SetBlock(thenBlk)
	thenVal := c.lowerBlock(n.Then)
	if c.b.Current().Terminator() == nil {
		c.b.Br(joinBlk.ID, thenVal)
	}

	c.b.SetBlock(elseBlk)
	var elseVal ir.ValueID
	if n.Else != nil {
		elseVal = c.lowerExpr(n.Else)
	} else {
		elseVal = c.unitValue()
	}
	if c.b.Current().Terminator() == nil {
		c.b.Br(joinBlk.ID, elseVal)
	}

	c.b.SetBlock(joinBlk)
	return joinBlk.Params[0].ID
}

// lowerWhile lowers `while cond { body }` into a header block with a
// cond_br and a body block branching back to the header.
func (c *Context) lowerWhile(n *ast.WhileStmt) {
	headerBlk := &ir.BasicBlock{ID: c.freshBlockID()}
	bodyBlk := &ir.BasicBlock{ID: c.freshBlockID()}
	exitBlk := &ir.BasicBlock{ID: c.freshBlockID()}
	c.fn.Blocks = append(c.fn.Blocks, headerBlk, bodyBlk, exitBlk)

	c.b.Br(headerBlk.ID)
	c.b.SetBlock(headerBlk)
	cond := c.lowerExpr(n.Cond)
	c.b.CondBr(cond, bodyBlk.ID, nil, exitBlk.ID, nil)

	c.loops = append(c.loops, loopCtx{headerBlock: headerBlk.ID, exitBlock: exitBlk.ID})
	c.b.SetBlock(bodyBlk)
	c.lowerBlock(n.Body)
	if c.b.Current().Terminator() == nil {
		c.b.Br(headerBlk.ID)
	}
	c.loops = c.loops[:len(c.loops)-1]

	c.b.SetBlock(exitBlk)
}

// lowerFor lowers `for x in iter { body }` via the iterator protocol:
// create an iterator handle once, then loop calling `next()` which
// returns an Option-shaped value; a None tag ends the loop.
func (c *Context) lowerFor(n *ast.ForStmt) {
	iterable := c.lowerExpr(n.Iter)
	iterHandle := c.b.CallIntrinsic("iter_new", []ir.ValueID{iterable}, types.Unknown{})

	headerBlk := &ir.BasicBlock{ID: c.freshBlockID()}
	bodyBlk := &ir.BasicBlock{ID: c.freshBlockID()}
	exitBlk := &ir.BasicBlock{ID: c.freshBlockID()}
	c.fn.Blocks = append(c.fn.Blocks, headerBlk, bodyBlk, exitBlk)

	c.b.Br(headerBlk.ID)
	c.b.SetBlock(headerBlk)
	next := c.b.CallIntrinsic("iter_next", []ir.ValueID{iterHandle}, types.Unknown{})
	hasNext := c.b.CallIntrinsic("option_is_some", []ir.ValueID{next}, types.Bool)
	c.b.CondBr(hasNext, bodyBlk.ID, nil, exitBlk.ID, nil)

	c.loops = append(c.loops, loopCtx{headerBlock: headerBlk.ID, exitBlock: exitBlk.ID})
	c.b.SetBlock(bodyBlk)
	item := c.b.CallIntrinsic("option_unwrap", []ir.ValueID{next}, n.Pattern.InferredType())
	c.bindNewLocal(n.Pattern, item, n.Pattern.InferredType())
	c.lowerBlock(n.Body)
	if c.b.Current().Terminator() == nil {
		c.b.Br(headerBlk.ID)
	}
	c.loops = c.loops[:len(c.loops)-1]

	c.b.SetBlock(exitBlk)
}

func (c *Context) lowerBreak() {
	if len(c.loops) == 0 {
		c.b.Unreachable()
		return
	}
	top := c.loops[len(c.loops)-1]
	c.b.Br(top.exitBlock)
}

func (c *Context) lowerContinue() {
	if len(c.loops) == 0 {
		c.b.Unreachable()
		return
	}
	top := c.loops[len(c.loops)-1]
	c.b.Br(top.headerBlock)
}

// freshBlockID/freshValueID mint ids disjoint from the builder's own
// counters by starting from a high base per function, since Context
// creates blocks directly (for forward references a branch needs
// before the target block exists) rather than exclusively through
// Builder.CreateBlock.
const lowerIDBase = 1 << 32

func (c *Context) freshBlockID() ir.BlockID {
	c.nextBlockID++
	return ir.BlockID(lowerIDBase + c.nextBlockID)
}

func (c *Context) freshValueID() ir.ValueID {
	c.nextValueID++
	return ir.ValueID(lowerIDBase + c.nextValueID)
}
