package common

import "testing"

func TestUtilsIsEmpty(t *testing.T) {

	if !IsEmpty("") || !IsEmpty("   ") {
		t.Error("Blank string is not empty")
	}
	if IsEmpty("x") {
		t.Error("Non-blank string is empty")
	}
}

func TestUtilsContains(t *testing.T) {

	list := []string{"stdout", "jaeger"}
	if !Contains(list, "jaeger") {
		t.Error("Existing element not found")
	}
	if Contains(list, "datadog") {
		t.Error("Missing element found")
	}
}

func TestUtilsGetKeyValues(t *testing.T) {

	m := GetKeyValues("a=1, b = 2,,broken")
	if len(m) != 2 {
		t.Fatalf("Wrong pair count: %d", len(m))
	}
	if m["a"] != "1" || m["b"] != "2" {
		t.Error("Wrong pair values")
	}

	m = GetKeyValues("env=${SOME_MISSING_ENV:fallback}")
	if m["env"] != "fallback" {
		t.Error("Wrong env default")
	}
}

func TestUtilsGetGuid(t *testing.T) {

	first := GetGuid()
	second := GetGuid()

	if IsEmpty(first) || first == second {
		t.Error("Invalid guid")
	}
}

func TestUtilsGetCallerInfo(t *testing.T) {

	function, file, line := GetCallerInfo(2)
	if IsEmpty(function) || IsEmpty(file) || line <= 0 {
		t.Error("Invalid caller info")
	}
}
