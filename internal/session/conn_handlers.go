package session

// handleCursorMove applies an inbound cursor:move and relays it to
// every other socket (§4.8: "store; broadcast cursor:update to other
// sockets").
func (c *conn) handleCursorMove(p cursorMovePayload) {
	if !c.hub.room.MoveShip(c.shipID, p.X, p.Y, p.Rot) {
		return
	}
	ship := c.hub.room.Ship(c.shipID)
	if ship == nil {
		return
	}
	c.hub.BroadcastExcept(c.shipID, "cursor:update", shipCursorPayload(ship))
}

// handleBulletShoot spawns a bullet; Room.ShootBullet itself performs
// the broadcast on success. The ship's equipped weapon (server state),
// not the client-supplied isRocket flag, decides what actually fires.
func (c *conn) handleBulletShoot(p bulletShootPayload) {
	c.hub.room.ShootBullet(c.shipID, p.X, p.Y, p.Angle)
}

// handleLaserShoot installs/replaces the ship's laser beam.
func (c *conn) handleLaserShoot(p laserShootPayload) {
	c.hub.room.ShootLaser(c.shipID, p.Angle)
}

// handleHealthDamage applies an authoritative health:damage frame
// (§4.8; Open Question (c) in DESIGN.md).
func (c *conn) handleHealthDamage(p healthDamagePayload) {
	c.hub.room.ApplyHealthDamage(p.UserID, p.Health, p.AttackerID)
}
