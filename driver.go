package flyweight

// Driver identifies the registry storage backend.
type Driver string

const (
	DriverNull   Driver = "null"
	DriverFile   Driver = "file"
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
	DriverSQL    Driver = "sql"
	DriverNATS   Driver = "nats"
	DriverDynamo Driver = "dynamodb"
)

// ParseDriver maps a user supplied name onto a known driver.
func ParseDriver(name string) (Driver, bool) {
	switch Driver(name) {
	case DriverNull, DriverFile, DriverMemory, DriverRedis, DriverSQL, DriverNATS, DriverDynamo:
		return Driver(name), true
	case "dynamo":
		return DriverDynamo, true
	case "":
		return DriverMemory, true
	}
	return "", false
}
