package patch

import "testing"

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := Args{"usb_port": "/dev/ttyACM0"}
	out, err := Apply(in, Overrides{Set: map[string]string{"usb_port": "/dev/ttyUSB1"}})
	if err != nil {
		t.Fatal(err)
	}
	if in["usb_port"] != "/dev/ttyACM0" {
		t.Fatalf("input mutated: %#v", in)
	}
	if out["usb_port"] != "/dev/ttyUSB1" {
		t.Fatalf("expected /dev/ttyUSB1, got %q", out["usb_port"])
	}
}

func TestApply_UnsetMissing(t *testing.T) {
	out, err := Apply(Args{"a": "1"}, Overrides{Unset: []string{"b"}})
	if err != nil {
		t.Fatal(err)
	}
	if out["a"] != "1" {
		t.Fatalf("expected a=1, got %#v", out)
	}
}

func TestApply_RejectsEmptyKey(t *testing.T) {
	if _, err := Apply(Args{}, Overrides{Set: map[string]string{" ": "x"}}); err == nil {
		t.Fatal("expected error")
	}
}

func TestMerge_LaterWins(t *testing.T) {
	out := Merge(
		Overrides{Set: map[string]string{"use_camera": "true"}, Unset: []string{"tb3_params"}},
		Overrides{Set: map[string]string{"use_camera": "false", "tb3_params": "/tmp/burger.yaml"}},
	)
	if out.Set["use_camera"] != "false" {
		t.Fatalf("expected false, got %q", out.Set["use_camera"])
	}
	if out.Set["tb3_params"] != "/tmp/burger.yaml" || len(out.Unset) != 0 {
		t.Fatalf("later set should cancel earlier unset: %#v", out)
	}
}

func TestMerge_LaterUnsetDropsSet(t *testing.T) {
	out := Merge(
		Overrides{Set: map[string]string{"usb_port": "/dev/ttyUSB1"}},
		Overrides{Unset: []string{"usb_port"}},
	)
	if _, ok := out.Set["usb_port"]; ok {
		t.Fatalf("expected usb_port removed from set: %#v", out)
	}
	if len(out.Unset) != 1 || out.Unset[0] != "usb_port" {
		t.Fatalf("expected usb_port in unset: %#v", out.Unset)
	}
}

func TestParseAssignments(t *testing.T) {
	o, err := ParseAssignments([]string{"usb_port:=/dev/ttyUSB1", "use_camera=false", "camera_params:="})
	if err != nil {
		t.Fatal(err)
	}
	if o.Set["usb_port"] != "/dev/ttyUSB1" || o.Set["use_camera"] != "false" {
		t.Fatalf("unexpected overrides: %#v", o.Set)
	}
	if v, ok := o.Set["camera_params"]; !ok || v != "" {
		t.Fatalf("expected empty camera_params, got %#v", o.Set)
	}
	if got := o.Keys(); len(got) != 3 || got[0] != "camera_params" {
		t.Fatalf("unexpected key order: %v", got)
	}

	if _, err := ParseAssignments([]string{"usb_port"}); err == nil {
		t.Fatal("expected error for missing separator")
	}
	if _, err := ParseAssignments([]string{":=x"}); err == nil {
		t.Fatal("expected error for empty name")
	}
}
