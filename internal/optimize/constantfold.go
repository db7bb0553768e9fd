package optimize

import (
	"github.com/nova-lang/nova/internal/analysis"
	"github.com/nova-lang/nova/internal/ir"
)

// ConstantFolding evaluates pure instructions whose operands are all
// compile-time constants and replaces them with a const instruction of
// the same result id and type, so every other use site is unaffected
//. Integer arithmetic is two's-complement wraparound, with no
// fold-time diagnostic (overflow is only ever diagnosed at the literal
// site, during lexing); float arithmetic follows the host's IEEE-754
// behavior, i.e. Go's native float64 semantics.
type ConstantFolding struct{}

func (cf *ConstantFolding) Name() string { return "constant-folding" }
func (cf *ConstantFolding) Description() string {
	return "evaluates pure instructions with constant operands and replaces cond_br on a constant with br"
}

func (cf *ConstantFolding) Apply(fn *ir.Function, am *analysis.Manager) bool {
	changed := false
	consts := make(map[ir.ValueID]any)

	// Constants can feed each other across blocks (a value computed in
	// one block and forwarded as a block-parameter argument to
	// another), so iterate to a fixpoint instead of a single forward
	// pass.
	for progressed := true; progressed; {
		progressed = false
		for _, blk := range fn.Blocks {
			for _, inst := range blk.Instructions {
				if v, ok := cf.evalConst(inst, consts); ok {
					if _, already := consts[inst.Result]; !already {
						consts[inst.Result] = v
						progressed = true
					}
				}
			}
		}
	}

	for _, blk := range fn.Blocks {
		for i, inst := range blk.Instructions {
			if inst.Opcode == ir.OpConst {
				continue
			}
			if v, ok := consts[inst.Result]; ok && inst.HasResult {
				blk.Instructions[i] = &ir.Instruction{
					Opcode: ir.OpConst, Result: inst.Result, HasResult: true,
					Type: inst.Type, Span: inst.Span, ConstValue: v,
				}
				changed = true
			}
		}

		term := blk.Terminator()
		if term != nil && term.Opcode == ir.OpCondBr {
			if v, ok := consts[term.Operands[0]]; ok {
				if b, isBool := v.(bool); isBool {
					dest, args := term.FalseDest, term.FalseArgs
					if b {
						dest, args = term.TrueDest, term.TrueArgs
					}
					blk.Instructions[len(blk.Instructions)-1] = &ir.Instruction{
						Opcode: ir.OpBr, TrueDest: dest, TrueArgs: args, Span: term.Span,
					}
					changed = true
				}
			}
		}
	}

	return changed
}

func (cf *ConstantFolding) evalConst(inst *ir.Instruction, consts map[ir.ValueID]any) (any, bool) {
	switch inst.Opcode {
	case ir.OpConst:
		return inst.ConstValue, true
	case ir.OpBinary:
		l, lok := consts[inst.Operands[0]]
		r, rok := consts[inst.Operands[1]]
		if !lok || !rok {
			return nil, false
		}
		return evalBinary(inst.BinOp, l, r)
	case ir.OpUnary:
		v, ok := consts[inst.Operands[0]]
		if !ok {
			return nil, false
		}
		return evalUnary(inst.UnOp, v)
	default:
		return nil, false
	}
}

func evalBinary(op string, l, r any) (any, bool) {
	if li, lok := l.(int64); lok {
		if ri, rok := r.(int64); rok {
			switch op {
			case "+":
				return li + ri, true
			case "-":
				return li - ri, true
			case "*":
				return li * ri, true
			case "/":
				if ri == 0 {
					return nil, false
				}
				return li / ri, true
			case "%":
				if ri == 0 {
					return nil, false
				}
				return li % ri, true
			case "==":
				return li == ri, true
			case "!=":
				return li != ri, true
			case "<":
				return li < ri, true
			case "<=":
				return li <= ri, true
			case ">":
				return li > ri, true
			case ">=":
				return li >= ri, true
			}
		}
	}
	if lf, lok := l.(float64); lok {
		if rf, rok := r.(float64); rok {
			switch op {
			case "+":
				return lf + rf, true
			case "-":
				return lf - rf, true
			case "*":
				return lf * rf, true
			case "/":
				return lf / rf, true
			case "==":
				return lf == rf, true
			case "!=":
				return lf != rf, true
			case "<":
				return lf < rf, true
			case "<=":
				return lf <= rf, true
			case ">":
				return lf > rf, true
			case ">=":
				return lf >= rf, true
			}
		}
	}
	if lb, lok := l.(bool); lok {
		if rb, rok := r.(bool); rok {
			switch op {
			case "&&":
				return lb && rb, true
			case "||":
				return lb || rb, true
			case "==":
				return lb == rb, true
			case "!=":
				return lb != rb, true
			}
		}
	}
	return nil, false
}

func evalUnary(op string, v any) (any, bool) {
	switch op {
	case "-":
		if i, ok := v.(int64); ok {
			return -i, true
		}
		if f, ok := v.(float64); ok {
			return -f, true
		}
	case "!":
		if b, ok := v.(bool); ok {
			return !b, true
		}
	}
	return nil, false
}
