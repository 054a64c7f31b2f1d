// Package demoschema is a hand-written stand-in for what the `.sds`
// schema compiler would generate (compiling `.sds` sources is out of
// scope for this runtime, §1): it installs one table descriptor at
// process init the way a generated artifact would.
//
// The table mirrors the hybrid owner/device demo shipped with the
// original implementation (one owner controlling an LED and selecting
// which device streams temperature/humidity, every device reporting
// power draw and a rotating log line) so cmd/sdsdemo can exercise the
// same shape end to end.
package demoschema

import "github.com/newtron-network/sds-runtime/pkg/schema"

// TableName is the table this package registers.
const TableName = "DeviceDemo"

const schemaVersion = "1.0.0"

func init() {
	meta, err := schema.NewTableMeta(TableName,
		[]schema.FieldDescriptor{
			{Name: "led_control", Type: schema.FieldUint8, Default: uint8(0)},
			{Name: "active_device", Type: schema.FieldString, StringCap: 32},
		},
		[]schema.FieldDescriptor{
			{Name: "temperature", Type: schema.FieldFloat32, Default: float32(0)},
			{Name: "humidity", Type: schema.FieldFloat32, Default: float32(0)},
		},
		[]schema.FieldDescriptor{
			{Name: "power_consumption", Type: schema.FieldFloat32, Default: float32(0)},
			{Name: "latest_log", Type: schema.FieldString, StringCap: 64},
		},
		schema.TableOptions{
			SyncIntervalMs:     1000,
			LivenessIntervalMs: 5000,
			SlotCapacity:       16,
		},
	)
	if err != nil {
		panic("demoschema: " + err.Error())
	}
	if err := schema.Install(meta); err != nil {
		panic("demoschema: " + err.Error())
	}
	schema.InstallVersion(schemaVersion)
}
