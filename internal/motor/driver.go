package motor

// Driver is one dual H-bridge chip: two bridges sharing a sleep line.
// The sleep line is active low (nSLEEP): LOW powers both bridges down.
type Driver struct {
	bridgeA *HBridge
	bridgeB *HBridge
	sleep   Channel
	asleep  bool
}

// NewDriver wires a chip from its four inputs and sleep line.
// The chip starts awake.
func NewDriver(ain1, ain2, bin1, bin2, sleep Channel) *Driver {
	d := &Driver{
		bridgeA: NewHBridge(ain1, ain2),
		bridgeB: NewHBridge(bin1, bin2),
		sleep:   sleep,
	}
	d.Wake()
	return d
}

// BridgeA returns the bridge on AIN1/AIN2.
func (d *Driver) BridgeA() *HBridge { return d.bridgeA }

// BridgeB returns the bridge on BIN1/BIN2.
func (d *Driver) BridgeB() *HBridge { return d.bridgeB }

// Sleep pulls the sleep line low. Commanded speeds are not cleared but the
// outputs are unpowered until Wake.
func (d *Driver) Sleep() {
	d.sleep.SetDigital(false)
	d.asleep = true
}

// Wake releases the sleep line. Previous speeds are not restored: callers
// must re-issue speed commands.
func (d *Driver) Wake() {
	d.sleep.SetDigital(true)
	d.asleep = false
}

// StopAll stops both bridges without touching the sleep line.
func (d *Driver) StopAll() {
	d.bridgeA.Stop()
	d.bridgeB.Stop()
}

// Asleep reports the last level written to the sleep line.
func (d *Driver) Asleep() bool {
	return d.asleep
}
