/*
Package server provides an NTRIP server implementation for streaming RTCM v3.3 data.

The NTRIP (Networked Transport of RTCM via Internet Protocol) server is responsible for
connecting to an NTRIP caster and publishing RTCM correction data. gnssd uses it as the
optional upstream-push leg (cmd/gnssd): internal/dispatch's relay copies every fanned-out
RTCM frame into a channel-backed DataSource (cmd/gnssd's chanDataSource) that this Server
drains and POSTs onward, so the device table stays the only place frames originate from.

# Main Components

## Server

The Server type is the main component of this package. It connects to an NTRIP caster
and publishes RTCM data from a data source.

Example usage:

    // Create a new server
    server := server.NewServer("example.com", "2101", "username", "password", "MOUNTPOINT", logger)

    // Set the data source
    server.SetDataSource(dataSource)

    // Start the server
    if err := server.Start(); err != nil {
        log.Fatalf("Server error: %v", err)
    }
    defer server.Stop()

## DataSource

The DataSource interface defines the methods that a data source must implement.
A data source is responsible for providing RTCM data to the server.

# SOLID Principles

This package follows the SOLID principles:

- Single Responsibility: Each component has a single responsibility
- Open/Closed: Components are open for extension but closed for modification
- Liskov Substitution: Interfaces can be substituted with their implementations
- Interface Segregation: Interfaces are specific to client needs
- Dependency Inversion: High-level modules depend on abstractions

# Thread Safety

Start, Stop and SetDataSource are guarded by a mutex. The server keeps one connection
to the caster at a time and reconnects after it ends.

# Protocol Support

The server speaks NTRIP version 2 only: it POSTs to the mountpoint with an
Ntrip-Version: Ntrip/2.0 header and chunked transfer encoding. The NTRIP version 1
SOURCE request is not supported.
*/
package server
