package lower

import (
	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/ir"
	"github.com/nova-lang/nova/internal/types"
)

// lowerMatch compiles a match expression into a chain of per-arm tests
// in source order. Lowering does not check exhaustiveness or arm
// reachability, and internal/pipeline does not run
// internal/patterns.CheckMatch before it; the fall-through after the
// last arm's test ends in an unreachable terminator.
func (c *Context) lowerMatch(n *ast.MatchExpr) ir.ValueID {
	scrut := c.lowerExpr(n.Scrutinee)
	scrutType := n.Scrutinee.InferredType()
	resultType := n.InferredType()

	joinBlk := &ir.BasicBlock{ID: c.freshBlockID(), Params: []ir.Value{{ID: c.freshValueID(), Type: resultType}}}
	c.fn.Blocks = append(c.fn.Blocks, joinBlk)

	for _, arm := range n.Arms {
		armBlk := &ir.BasicBlock{ID: c.freshBlockID()}
		nextBlk := &ir.BasicBlock{ID: c.freshBlockID()}
		c.fn.Blocks = append(c.fn.Blocks, armBlk, nextBlk)

		c.lowerPatternTest(arm.Pattern, scrut, scrutType, armBlk.ID, nextBlk.ID)

		c.b.SetBlock(armBlk)
		c.bindDestructure(arm.Pattern, scrut, scrutType)
		if arm.Guard != nil {
			guardVal := c.lowerExpr(arm.Guard)
			guardOkBlk := &ir.BasicBlock{ID: c.freshBlockID()}
			c.fn.Blocks = append(c.fn.Blocks, guardOkBlk)
			c.b.CondBr(guardVal, guardOkBlk.ID, nil, nextBlk.ID, nil)
			c.b.SetBlock(guardOkBlk)
		}
		bodyVal := c.lowerExpr(arm.Body)
		if c.b.Current().Terminator() == nil {
			c.emitRetain(bodyVal, arm.Body.InferredType())
			c.b.Br(joinBlk.ID, bodyVal)
		}

		c.b.SetBlock(nextBlk)
	}
	c.b.Unreachable()

	c.b.SetBlock(joinBlk)
	return joinBlk.Params[0].ID
}

// lowerPatternTest emits, into the current block, the instructions
// that decide whether val (of static type t) matches pat, terminating
// the current block with a branch to matchDest or failDest.
func (c *Context) lowerPatternTest(pat ast.Pattern, val ir.ValueID, t types.Type, matchDest, failDest ir.BlockID) {
	switch p := pat.(type) {
	case *ast.WildcardPattern, *ast.IdentifierPattern:
		c.b.Br(matchDest)

	case *ast.LiteralPattern:
		lit := c.lowerExpr(p.Value)
		eq := c.b.Binary("==", val, lit, types.Bool)
		c.b.CondBr(eq, matchDest, nil, failDest, nil)

	case *ast.RangePattern:
		lo := c.lowerExpr(p.Low)
		hi := c.lowerExpr(p.High)
		geLo := c.b.Binary(">=", val, lo, types.Bool)
		hiOp := "<"
		if p.Inclusive {
			hiOp = "<="
		}
		leHi := c.b.Binary(hiOp, val, hi, types.Bool)
		inRange := c.b.Binary("&&", geLo, leHi, types.Bool)
		c.b.CondBr(inRange, matchDest, nil, failDest, nil)

	case *ast.OrPattern:
		for i, alt := range p.Alternatives {
			if i == len(p.Alternatives)-1 {
				c.lowerPatternTest(alt, val, t, matchDest, failDest)
				return
			}
			nextAlt := &ir.BasicBlock{ID: c.freshBlockID()}
			c.fn.Blocks = append(c.fn.Blocks, nextAlt)
			c.lowerPatternTest(alt, val, t, matchDest, nextAlt.ID)
			c.b.SetBlock(nextAlt)
		}

	case *ast.GuardPattern:
		// The guard condition itself is evaluated by the caller once the
		// arm's bindings are in scope (lowerMatch); here only the inner
		// shape is tested.
		c.lowerPatternTest(p.Inner, val, t, matchDest, failDest)

	case *ast.ConstructorPattern:
		tag := c.b.CallIntrinsic("variant_tag", []ir.ValueID{val}, types.String)
		nameConst := c.b.Const(p.Name, types.String)
		isTag := c.b.Binary("==", tag, nameConst, types.Bool)
		if len(p.Payload) == 0 {
			c.b.CondBr(isTag, matchDest, nil, failDest, nil)
			return
		}
		payloadBlk := &ir.BasicBlock{ID: c.freshBlockID()}
		c.fn.Blocks = append(c.fn.Blocks, payloadBlk)
		c.b.CondBr(isTag, payloadBlk.ID, nil, failDest, nil)
		c.b.SetBlock(payloadBlk)
		c.lowerPayloadTests(p.Payload, val, matchDest, failDest)

	case *ast.ArrayPattern:
		lenVal := c.b.CallIntrinsic("array_len", []ir.ValueID{val}, types.Int)
		minConst := c.b.Const(int64(len(p.Elements)), types.Int)
		lenOp := "=="
		if p.HasRest {
			lenOp = ">="
		}
		lenOk := c.b.Binary(lenOp, lenVal, minConst, types.Bool)
		if len(p.Elements) == 0 {
			c.b.CondBr(lenOk, matchDest, nil, failDest, nil)
			return
		}
		elemsBlk := &ir.BasicBlock{ID: c.freshBlockID()}
		c.fn.Blocks = append(c.fn.Blocks, elemsBlk)
		c.b.CondBr(lenOk, elemsBlk.ID, nil, failDest, nil)
		c.b.SetBlock(elemsBlk)
		c.lowerArrayElemTests(p.Elements, val, matchDest, failDest)

	case *ast.ObjectPattern:
		if len(p.Fields) == 0 {
			c.b.Br(matchDest)
			return
		}
		c.lowerObjectFieldTests(p.Fields, val, t, matchDest, failDest)

	default:
		c.b.Br(matchDest)
	}
}

func (c *Context) lowerPayloadTests(payload []ast.Pattern, val ir.ValueID, matchDest, failDest ir.BlockID) {
	for i, sub := range payload {
		idx := c.b.Const(int64(i), types.Int)
		elem := c.b.CallIntrinsic("variant_payload", []ir.ValueID{val, idx}, types.Unknown{})
		if i == len(payload)-1 {
			c.lowerPatternTest(sub, elem, types.Unknown{}, matchDest, failDest)
			return
		}
		nextBlk := &ir.BasicBlock{ID: c.freshBlockID()}
		c.fn.Blocks = append(c.fn.Blocks, nextBlk)
		c.lowerPatternTest(sub, elem, types.Unknown{}, nextBlk.ID, failDest)
		c.b.SetBlock(nextBlk)
	}
}

func (c *Context) lowerArrayElemTests(elems []ast.Pattern, val ir.ValueID, matchDest, failDest ir.BlockID) {
	for i, sub := range elems {
		elem := c.b.Gep(val, i, 0, types.Unknown{})
		if i == len(elems)-1 {
			c.lowerPatternTest(sub, elem, types.Unknown{}, matchDest, failDest)
			return
		}
		nextBlk := &ir.BasicBlock{ID: c.freshBlockID()}
		c.fn.Blocks = append(c.fn.Blocks, nextBlk)
		c.lowerPatternTest(sub, elem, types.Unknown{}, nextBlk.ID, failDest)
		c.b.SetBlock(nextBlk)
	}
}

func (c *Context) lowerObjectFieldTests(fields []ast.ObjectPatternField, val ir.ValueID, t types.Type, matchDest, failDest ir.BlockID) {
	for i, f := range fields {
		elem := c.gepField(val, t, f.Name, types.Unknown{})
		if i == len(fields)-1 {
			c.lowerPatternTest(f.Pattern, elem, types.Unknown{}, matchDest, failDest)
			return
		}
		nextBlk := &ir.BasicBlock{ID: c.freshBlockID()}
		c.fn.Blocks = append(c.fn.Blocks, nextBlk)
		c.lowerPatternTest(f.Pattern, elem, types.Unknown{}, nextBlk.ID, failDest)
		c.b.SetBlock(nextBlk)
	}
}
