package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

func TestDevicesFromMsg(t *testing.T) {
	t.Run("Array", func(t *testing.T) {
		msg := json.RawMessage(`[
			{"me":"2d34","devtype":"SL_SW_ND1","name":"Kitchen","agt":"A3EAAABt","epver":"n",
			 "data":{"L1":{"type":129,"v":1,"name":"{$EPN}"}}},
			{"me":"2d3c","devtype":"SL_NATURE","data":{"T":{"v":23.5}}}
		]`)

		devices, err := DevicesFromMsg(msg)
		if err != nil {
			t.Fatalf("DevicesFromMsg() error = %v", err)
		}
		if len(devices) != 2 {
			t.Fatalf("got %d devices, want 2", len(devices))
		}
		if devices[0].Me != "2d34" || devices[0].Devtype != "SL_SW_ND1" {
			t.Errorf("device 0 = %+v", devices[0])
		}
		c, ok := devices[0].Channel("L1")
		if !ok || c.Type != 129 {
			t.Errorf("device 0 channel L1 = %+v, ok=%v", c, ok)
		}
		if v, ok := devices[1].Data["T"].Value(); !ok || v != 23.5 {
			t.Errorf("device 1 T value = %v, ok=%v", v, ok)
		}
	})

	t.Run("KeyedObject", func(t *testing.T) {
		msg := json.RawMessage(`{
			"2d3c":{"devtype":"SL_NATURE"},
			"2d34":{"me":"2d34","devtype":"SL_SW_ND1"}
		}`)

		devices, err := DevicesFromMsg(msg)
		if err != nil {
			t.Fatalf("DevicesFromMsg() error = %v", err)
		}
		if len(devices) != 2 {
			t.Fatalf("got %d devices, want 2", len(devices))
		}
		// Sorted by id, missing me filled from the key.
		if devices[0].Me != "2d34" || devices[1].Me != "2d3c" {
			t.Errorf("ids = %q, %q, want 2d34, 2d3c", devices[0].Me, devices[1].Me)
		}
	})

	t.Run("SingleObject", func(t *testing.T) {
		msg := json.RawMessage(`{"me":"2d34","devtype":"SL_SW_ND1"}`)

		devices, err := DevicesFromMsg(msg)
		if err != nil {
			t.Fatalf("DevicesFromMsg() error = %v", err)
		}
		if len(devices) != 1 || devices[0].Me != "2d34" {
			t.Errorf("devices = %+v, want one 2d34", devices)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		if _, err := DevicesFromMsg(json.RawMessage(`42`)); !errors.Is(err, wire.ErrMalformedResponse) {
			t.Errorf("DevicesFromMsg() error = %v, want ErrMalformedResponse", err)
		}
	})
}

func TestDeviceFromMsg(t *testing.T) {
	t.Run("Object", func(t *testing.T) {
		msg := json.RawMessage(`{"me":"2d34","devtype":"SL_SW_ND1","data":{"L1":{"type":128,"v":0}}}`)

		d, err := DeviceFromMsg(msg)
		if err != nil {
			t.Fatalf("DeviceFromMsg() error = %v", err)
		}
		if d.Me != "2d34" {
			t.Errorf("Me = %q, want 2d34", d.Me)
		}
	})

	t.Run("OneElementList", func(t *testing.T) {
		msg := json.RawMessage(`[{"me":"2d34","devtype":"SL_SW_ND1"}]`)

		d, err := DeviceFromMsg(msg)
		if err != nil {
			t.Fatalf("DeviceFromMsg() error = %v", err)
		}
		if d.Me != "2d34" {
			t.Errorf("Me = %q, want 2d34", d.Me)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		if _, err := DeviceFromMsg(json.RawMessage(`"nope"`)); !errors.Is(err, wire.ErrMalformedResponse) {
			t.Errorf("DeviceFromMsg() error = %v, want ErrMalformedResponse", err)
		}
	})
}

func TestChannelFromMsg(t *testing.T) {
	msg := json.RawMessage(`{"me":"2d34","devtype":"SL_NATURE","data":{"T":{"type":0,"v":22.8}}}`)

	c, err := ChannelFromMsg(msg, "T")
	if err != nil {
		t.Fatalf("ChannelFromMsg() error = %v", err)
	}
	if v, ok := c.Value(); !ok || v != 22.8 {
		t.Errorf("channel value = %v, ok=%v, want 22.8", v, ok)
	}

	if _, err := ChannelFromMsg(msg, "P8"); !errors.Is(err, wire.ErrMalformedResponse) {
		t.Errorf("ChannelFromMsg(P8) error = %v, want ErrMalformedResponse", err)
	}
}

func TestRemotesFromMsg(t *testing.T) {
	t.Run("Array", func(t *testing.T) {
		msg := json.RawMessage(`[
			{"id":"ir_2d88_1","name":"living room tv","category":"tv","brand":"lg"},
			{"id":"ir_2d88_2","category":"ac","brand":"gree"}
		]`)

		remotes, err := RemotesFromMsg(msg)
		if err != nil {
			t.Fatalf("RemotesFromMsg() error = %v", err)
		}
		want := []Remote{
			{ID: "ir_2d88_1", Name: "living room tv", Category: "tv", Brand: "lg"},
			{ID: "ir_2d88_2", Category: "ac", Brand: "gree"},
		}
		if !reflect.DeepEqual(remotes, want) {
			t.Errorf("remotes = %+v, want %+v", remotes, want)
		}
	})

	t.Run("SingleObject", func(t *testing.T) {
		msg := json.RawMessage(`{"id":"ir_2d88_1","category":"tv"}`)

		remotes, err := RemotesFromMsg(msg)
		if err != nil {
			t.Fatalf("RemotesFromMsg() error = %v", err)
		}
		if len(remotes) != 1 || remotes[0].ID != "ir_2d88_1" {
			t.Errorf("remotes = %+v", remotes)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		if _, err := RemotesFromMsg(json.RawMessage(`true`)); !errors.Is(err, wire.ErrMalformedResponse) {
			t.Errorf("RemotesFromMsg() error = %v, want ErrMalformedResponse", err)
		}
	})
}

func TestKeysFromMsg(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want []string
	}{
		{"NameArray", `["power","vol+","vol-"]`, []string{"power", "vol+", "vol-"}},
		{"KeyedObjectSorted", `{"vol+":"845","power":"831"}`, []string{"power", "vol+"}},
		{"ObjectListByName", `[{"name":"power"},{"name":"mute"}]`, []string{"power", "mute"}},
		{"ObjectListByKey", `[{"key":"power"},{"key":"mute"}]`, []string{"power", "mute"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeysFromMsg(json.RawMessage(tt.msg))
			if err != nil {
				t.Fatalf("KeysFromMsg() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("KeysFromMsg() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("Malformed", func(t *testing.T) {
		if _, err := KeysFromMsg(json.RawMessage(`17`)); !errors.Is(err, wire.ErrMalformedResponse) {
			t.Errorf("KeysFromMsg() error = %v, want ErrMalformedResponse", err)
		}
	})
}

func TestUpdateFromMsg(t *testing.T) {
	t.Run("DataValue", func(t *testing.T) {
		msg := json.RawMessage(`{"me":"2d34","idx":"L1","type":129,"data":{"v":1}}`)

		u, err := UpdateFromMsg(msg)
		if err != nil {
			t.Fatalf("UpdateFromMsg() error = %v", err)
		}
		want := Update{Me: "2d34", Idx: "L1", Type: 129, Value: 1, HasValue: true}
		if u != want {
			t.Errorf("UpdateFromMsg() = %+v, want %+v", u, want)
		}
	})

	t.Run("ValFallback", func(t *testing.T) {
		msg := json.RawMessage(`{"me":"2d34","idx":"P2","type":128,"val":0}`)

		u, err := UpdateFromMsg(msg)
		if err != nil {
			t.Fatalf("UpdateFromMsg() error = %v", err)
		}
		if !u.HasValue || u.Value != 0 {
			t.Errorf("UpdateFromMsg() = %+v, want val 0 present", u)
		}
	})

	t.Run("NoValue", func(t *testing.T) {
		msg := json.RawMessage(`{"me":"2d34","idx":"L1","type":129}`)

		u, err := UpdateFromMsg(msg)
		if err != nil {
			t.Fatalf("UpdateFromMsg() error = %v", err)
		}
		if u.HasValue {
			t.Error("HasValue = true for a value-less report")
		}
	})

	t.Run("MissingDeviceID", func(t *testing.T) {
		if _, err := UpdateFromMsg(json.RawMessage(`{"idx":"L1"}`)); !errors.Is(err, wire.ErrMalformedResponse) {
			t.Errorf("UpdateFromMsg() error = %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("BadJSON", func(t *testing.T) {
		if _, err := UpdateFromMsg(json.RawMessage(`{`)); !errors.Is(err, wire.ErrMalformedResponse) {
			t.Errorf("UpdateFromMsg() error = %v, want ErrMalformedResponse", err)
		}
	})
}
