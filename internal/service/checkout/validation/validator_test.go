package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFormValues() map[string]string {
	return map[string]string{
		"name":        "Jane Doe",
		"email":       "jane@example.com",
		"address1":    "1 Main Street",
		"address2":    "",
		"city":        "Springfield",
		"postal_code": "AB1 2CD",
	}
}

func compiledOrderForm(t *testing.T) *Form {
	t.Helper()
	form, err := Compile(OrderForm())
	require.NoError(t, err)
	return form
}

func TestCompile_RejectsMalformedRule(t *testing.T) {
	_, err := Compile([]FieldSpec{
		{Name: "name", Rules: []RuleSpec{{Expr: `value !=`, Message: "broken"}}},
	})
	assert.Error(t, err)
}

func TestValidate_ValidFormPasses(t *testing.T) {
	form := compiledOrderForm(t)

	result := form.Validate(validFormValues())
	assert.False(t, result.Failed())
	assert.Empty(t, result.Errors)
}

func TestValidate_MalformedEmail(t *testing.T) {
	form := compiledOrderForm(t)

	values := validFormValues()
	values["email"] = "not-an-email"
	result := form.Validate(values)

	require.True(t, result.Failed())
	assert.Equal(t, []string{"Email must be a valid email address"}, result.Errors["email"])
	assert.NotContains(t, result.Errors, "name")
}

func TestValidate_AccumulatesAcrossRulesAndFields(t *testing.T) {
	form := compiledOrderForm(t)

	result := form.Validate(map[string]string{
		"name":        "",
		"email":       "",
		"address1":    "1 Main Street",
		"city":        "Springfield",
		"postal_code": "AB1 2CD",
	})

	require.True(t, result.Failed())
	// 空字段同时命中非空规则和格式规则，错误不短路
	assert.Len(t, result.Errors["name"], 2)
	assert.Len(t, result.Errors["email"], 2)
	assert.NotContains(t, result.Errors, "address1")
}

func TestValidate_NameMinimumLength(t *testing.T) {
	form := compiledOrderForm(t)

	values := validFormValues()
	values["name"] = "J"
	result := form.Validate(values)
	require.True(t, result.Failed())
	assert.Equal(t, []string{"Name must have at least 2 characters"}, result.Errors["name"])

	// 长度恰好为 2 的名字是合法的
	values["name"] = "Jo"
	assert.False(t, form.Validate(values).Failed())
}

func TestValidate_ReturnsFreshResultPerCall(t *testing.T) {
	form := compiledOrderForm(t)

	bad := validFormValues()
	bad["city"] = ""
	first := form.Validate(bad)
	require.True(t, first.Failed())

	// 上一次的错误绝不泄漏到下一次校验
	second := form.Validate(validFormValues())
	assert.False(t, second.Failed())
	assert.True(t, first.Failed())
}

func TestValidate_OptionalAddress2(t *testing.T) {
	form := compiledOrderForm(t)

	values := validFormValues()
	values["address2"] = ""
	assert.False(t, form.Validate(values).Failed())

	values["address2"] = "x"
	result := form.Validate(values)
	require.True(t, result.Failed())
	assert.Contains(t, result.Errors, "address2")

	values["address2"] = "Unit 4"
	assert.False(t, form.Validate(values).Failed())
}

func TestValidate_PostalCodeFormat(t *testing.T) {
	form := compiledOrderForm(t)

	values := validFormValues()
	values["postal_code"] = "!!!"
	result := form.Validate(values)
	require.True(t, result.Failed())
	assert.Equal(t, []string{"Postal code must be alphanumeric"}, result.Errors["postal_code"])
}

func TestValidationError_Message(t *testing.T) {
	err := &Error{Result: &Result{Errors: map[string][]string{
		"email": {"Email must not be empty"},
	}}}
	assert.Contains(t, err.Error(), "1 field(s)")
}
