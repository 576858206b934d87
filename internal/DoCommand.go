package internal

import "net/textproto"

// DoCommand sends one command line and consumes the reply, failing when
// the reply code does not match expectedCode.
func DoCommand(c *textproto.Conn, expectedCode int, line string) error {
	id, err := c.Cmd("%s", line)
	if err != nil {
		return err
	}
	c.StartResponse(id)
	defer c.EndResponse(id)
	_, _, err = c.ReadResponse(expectedCode)
	return err
}
