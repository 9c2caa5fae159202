// internal/service/checkout/validation/validator.go
package validation

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// 这是一个典型的适配器模式应用：把第三方规则引擎（cel-go）的 API
// 适配成表单校验需要的 字段 → 规则列表 → 错误映射 契约。
// 校验器本身无状态，每次 Validate 返回全新的 Result，
// 绝不跨请求累积错误。

// RuleSpec 声明一条规则：一个对 value 字符串求值的 CEL 布尔表达式，
// 以及规则不满足时给用户看的消息。
type RuleSpec struct {
	Expr    string
	Message string
}

// FieldSpec 声明一个可识别的表单字段及其规则。
// Optional 字段在取值为空时跳过全部规则。
type FieldSpec struct {
	Name     string
	Optional bool
	Rules    []RuleSpec
}

type compiledRule struct {
	prg     cel.Program
	message string
}

type compiledField struct {
	name     string
	optional bool
	rules    []compiledRule
}

// Form 是一组编译好的字段规则。编译一次，随后并发安全地复用。
type Form struct {
	fields []compiledField
}

// Compile 编译声明的规则集。表达式语法错误在这里暴露，
// 服务启动时即失败，而不是留到请求路径上。
func Compile(specs []FieldSpec) (*Form, error) {
	env, err := cel.NewEnv(cel.Variable("value", cel.StringType))
	if err != nil {
		return nil, fmt.Errorf("failed to create rule environment: %w", err)
	}

	form := &Form{fields: make([]compiledField, 0, len(specs))}
	for _, spec := range specs {
		field := compiledField{name: spec.Name, optional: spec.Optional}
		for _, rule := range spec.Rules {
			ast, issues := env.Compile(rule.Expr)
			if issues != nil && issues.Err() != nil {
				return nil, fmt.Errorf("field %q rule %q: %w", spec.Name, rule.Expr, issues.Err())
			}
			prg, err := env.Program(ast)
			if err != nil {
				return nil, fmt.Errorf("field %q rule %q: %w", spec.Name, rule.Expr, err)
			}
			field.rules = append(field.rules, compiledRule{prg: prg, message: rule.Message})
		}
		form.fields = append(form.fields, field)
	}
	return form, nil
}

// Result 是一次校验的结果：字段名 → 有序的消息列表。
// 映射为空等价于校验通过。
type Result struct {
	Errors map[string][]string
}

// Failed 返回校验是否失败。
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}

// Validate 逐字段求值。规则失败不会短路：同一字段的后续规则
// 和其余字段都会继续求值，错误全部累积到结果中。
func (f *Form) Validate(values map[string]string) *Result {
	result := &Result{Errors: make(map[string][]string)}
	for _, field := range f.fields {
		value := values[field.name]
		if field.optional && value == "" {
			continue
		}
		for _, rule := range field.rules {
			out, _, err := rule.prg.Eval(map[string]interface{}{"value": value})
			if err != nil {
				result.Errors[field.name] = append(result.Errors[field.name], rule.message)
				continue
			}
			if ok, _ := out.Value().(bool); !ok {
				result.Errors[field.name] = append(result.Errors[field.name], rule.message)
			}
		}
	}
	return result
}

// Error 把校验失败包装成错误值，供应用层向上传递、
// 接口层渲染为带字段错误的响应。
type Error struct {
	Result *Result
}

func (e *Error) Error() string {
	return fmt.Sprintf("form validation failed on %d field(s)", len(e.Result.Errors))
}
