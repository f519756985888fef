// Package common provides the data structures shared by the driver, the
// transports and the server. It defines the wire protocol, configuration,
// error kinds and logging.
//
// Key Components:
//
//   - Message: Envelope of every RPC. One message type per operation (Query,
//     CheckVersion, CommitOrAbort, Alter) plus Error, with factory methods for
//     requests and responses.
//
//   - Request, Response, TxnContext, Mutation, Operation: The graph protocol payloads.
//     TxnContext carries the start ts, conflict keys and predicates of a transaction.
//
//   - EndpointSet: The immutable list of server addresses a pool balances across.
//
//   - Error: Every driver error has a kind (Transport, Status, Pool, Transaction,
//     InvalidArgument). Server rejections wrap a StatusError with a status code.
//
//   - ServerConfig, ClientConfig: Configuration of both sides, including the
//     transport socket options.
//
//   - Logger: Custom formatter for the dragonboat logger package, used by all
//     named loggers of the driver.
package common
