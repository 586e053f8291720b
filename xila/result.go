package xila

import "fmt"

// Result is the outcome of a kernel file system call.
// Zero is success; every other value names one failure.
type Result uint32

const (
	Success Result = iota
	FailedToInitializeFileSystem
	PermissionDenied
	NotFound
	AlreadyExists
	DirectoryAlreadyExists
	FileSystemFull
	FileSystemError
	InvalidPath
	InvalidFile
	InvalidDirectory
	InvalidSymbolicLink
	Unknown
	InvalidIdentifier
	FailedToGetTaskInformations
	FailedToGetUsersInformations
	TooManyMountedFileSystems
	TooManyOpenFiles
	InternalError
	InvalidMode
	UnsupportedOperation
	RessourceBusy
	AlreadyInitialized
	NotInitialized
	FailedToGetUsersManagerInstance
	FailedToGetTaskManagerInstance
	InvalidParameter
	InvalidFlags
	NotDirectory
	IsDirectory
	InputOutput
	DirectoryNotEmpty
	FileTooLarge
	NoAttribute
	NameTooLong
	Corrupted
	NoMemory
	NoSpaceLeft
	TimeError
	InvalidInode
	Other
)

var resultStrings = [...]string{
	Success:                         "Success",
	FailedToInitializeFileSystem:    "Failed to initialize file system",
	PermissionDenied:                "Permission denied",
	NotFound:                        "Not found",
	AlreadyExists:                   "Already exists",
	DirectoryAlreadyExists:          "Directory already exists",
	FileSystemFull:                  "File system full",
	FileSystemError:                 "File system error",
	InvalidPath:                     "Invalid path",
	InvalidFile:                     "Invalid file",
	InvalidDirectory:                "Invalid directory",
	InvalidSymbolicLink:             "Invalid symbolic link",
	Unknown:                         "Unknown",
	InvalidIdentifier:               "Invalid identifier",
	FailedToGetTaskInformations:     "Failed to get task informations",
	FailedToGetUsersInformations:    "Failed to get users informations",
	TooManyMountedFileSystems:       "Too many mounted file systems",
	TooManyOpenFiles:                "Too many open files",
	InternalError:                   "Internal error",
	InvalidMode:                     "Invalid mode",
	UnsupportedOperation:            "Unsupported operation",
	RessourceBusy:                   "Ressource busy",
	AlreadyInitialized:              "Already initialized",
	NotInitialized:                  "Not initialized",
	FailedToGetUsersManagerInstance: "Failed to get users manager instance",
	FailedToGetTaskManagerInstance:  "Failed to get task manager instance",
	InvalidParameter:                "Invalid parameter",
	InvalidFlags:                    "Invalid flags",
	NotDirectory:                    "Not directory",
	IsDirectory:                     "Is directory",
	InputOutput:                     "Input output",
	DirectoryNotEmpty:               "Directory not empty",
	FileTooLarge:                    "File too large",
	NoAttribute:                     "No attribute",
	NameTooLong:                     "Name too long",
	Corrupted:                       "Corrupted",
	NoMemory:                        "No memory",
	NoSpaceLeft:                     "No space left",
	TimeError:                       "Time error",
	InvalidInode:                    "Invalid inode",
	Other:                           "Other",
}

// OK reports whether r is Success.
func (r Result) OK() bool {
	return r == Success
}

func (r Result) String() string {
	if int(r) < len(resultStrings) {
		return resultStrings[r]
	}
	return fmt.Sprintf("Result(%d)", uint32(r))
}

func (r Result) Error() string {
	return r.String()
}
