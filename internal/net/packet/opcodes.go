package packet

// Client → server opcodes.
const (
	C_OPCODE_HELLO byte = 1 // [S name]
	C_OPCODE_INPUT byte = 2 // [F vx][F vy]
	C_OPCODE_PING  byte = 3 // [DU nonce]
	C_OPCODE_BYE   byte = 4
)

// Server → client opcodes.
const (
	S_OPCODE_WELCOME  byte = 101 // [DU entity]
	S_OPCODE_SNAPSHOT byte = 102 // [H count] count × [DU entity][F x][F y]
	S_OPCODE_PONG     byte = 103 // [DU nonce]
)
