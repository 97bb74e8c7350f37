package urlutil

import (
	"reflect"
	"testing"
)

func TestExpandGlobList(t *testing.T) {
	got := ExpandGlob("https://choosealicense.com/licenses/{mit,apache-2.0,mpl-2.0}/")
	want := []string{
		"https://choosealicense.com/licenses/mit/",
		"https://choosealicense.com/licenses/apache-2.0/",
		"https://choosealicense.com/licenses/mpl-2.0/",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandGlob(list) = %v, want %v", got, want)
	}
}

func TestExpandGlobListEscapedClosingBrace(t *testing.T) {
	input := `https://choosealicense.com/licenses/{mit\}/`
	got := ExpandGlob(input)
	want := []string{input}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandGlob(escaped closing brace) = %v, want %v", got, want)
	}
}

func TestExpandGlobNumericRange(t *testing.T) {
	got := ExpandGlob("https://choosealicense.com/licenses/bsd-[2-4]-clause/")
	want := []string{
		"https://choosealicense.com/licenses/bsd-2-clause/",
		"https://choosealicense.com/licenses/bsd-3-clause/",
		"https://choosealicense.com/licenses/bsd-4-clause/",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandGlob(numeric range) = %v, want %v", got, want)
	}
}

func TestExpandGlobNumericRangeSingleItem(t *testing.T) {
	got := ExpandGlob("https://choosealicense.com/licenses/bsd-[4-4]-clause/")
	want := []string{"https://choosealicense.com/licenses/bsd-4-clause/"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandGlob(single item range) = %v, want %v", got, want)
	}
}

func TestExpandGlobNumericRangeWithStep(t *testing.T) {
	got := ExpandGlob("https://choosealicense.com/licenses/bsd-[2-4:2]-clause/")
	want := []string{
		"https://choosealicense.com/licenses/bsd-2-clause/",
		"https://choosealicense.com/licenses/bsd-4-clause/",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandGlob(step range) = %v, want %v", got, want)
	}
}

func TestExpandGlobNumericRangeWithPadding(t *testing.T) {
	got := ExpandGlob("https://choosealicense.com/licenses/bsd-[002-004]-clause/")
	want := []string{
		"https://choosealicense.com/licenses/bsd-002-clause/",
		"https://choosealicense.com/licenses/bsd-003-clause/",
		"https://choosealicense.com/licenses/bsd-004-clause/",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandGlob(padded range) = %v, want %v", got, want)
	}
}

func TestExpandGlobNumericRangeIgnoresEndPadding(t *testing.T) {
	got := ExpandGlob("https://choosealicense.com/licenses/bsd-[008-10]-clause/")
	want := []string{
		"https://choosealicense.com/licenses/bsd-008-clause/",
		"https://choosealicense.com/licenses/bsd-009-clause/",
		"https://choosealicense.com/licenses/bsd-010-clause/",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandGlob(asymmetric padding) = %v, want %v", got, want)
	}
}

func TestExpandGlobAlphabeticalRange(t *testing.T) {
	got := ExpandGlob("https://choosealicense.com/licenses/[w-z]lib/")
	want := []string{
		"https://choosealicense.com/licenses/wlib/",
		"https://choosealicense.com/licenses/xlib/",
		"https://choosealicense.com/licenses/ylib/",
		"https://choosealicense.com/licenses/zlib/",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandGlob(alpha range) = %v, want %v", got, want)
	}
}

func TestExpandGlobCombination(t *testing.T) {
	got := ExpandGlob("https://choosealicense.com/licenses/bsd-[2-4]-clause{,-clear}/")
	want := []string{
		"https://choosealicense.com/licenses/bsd-2-clause/",
		"https://choosealicense.com/licenses/bsd-2-clause-clear/",
		"https://choosealicense.com/licenses/bsd-3-clause/",
		"https://choosealicense.com/licenses/bsd-3-clause-clear/",
		"https://choosealicense.com/licenses/bsd-4-clause/",
		"https://choosealicense.com/licenses/bsd-4-clause-clear/",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandGlob(combination) = %v, want %v", got, want)
	}
}

func TestExpandGlobNoPatternReturnsOriginal(t *testing.T) {
	input := "https://choosealicense.com"
	got := ExpandGlob(input)
	want := []string{input}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandGlob(no pattern) = %v, want %v", got, want)
	}
}
