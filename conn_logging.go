package esmtpd

// LogTrace is used to send trace level message to server logger
func (c *Conn) LogTrace(format string, args ...any) {
	c.server.Logger.Tracef(c, format, args...)
}

// LogDebug is used to send debug level message to server logger
func (c *Conn) LogDebug(format string, args ...any) {
	c.server.Logger.Debugf(c, format, args...)
}

// LogInfo is used to send info level message to server logger
func (c *Conn) LogInfo(format string, args ...any) {
	c.server.Logger.Infof(c, format, args...)
}

// LogWarn is used to send warning level message to server logger
func (c *Conn) LogWarn(format string, args ...any) {
	c.server.Logger.Warnf(c, format, args...)
}

// LogError is used to send error level message to server logger
func (c *Conn) LogError(err error, desc string) {
	c.server.Logger.Errorf(c, "%s: %v ", desc, err)
}
